package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	ErrNotFound               = errors.New("record not found")
	ErrPastDate               = errors.New("date is in the past")
	ErrTooFarAhead            = errors.New("date is too far ahead")
	ErrInvalidSlot            = errors.New("unknown time slot")
	ErrInvalidServiceType     = errors.New("unknown service type")
	ErrSlotUnavailable        = errors.New("slot unavailable")
	ErrUnknownDoctor          = errors.New("doctor not found")
	ErrInvalidStatus          = errors.New("invalid status transition")
	ErrConcurrentModification = errors.New("record was modified concurrently")
)

func isUniqueViolation(err error) bool {
	var sqlErr sqlite3.Error
	if errors.As(err, &sqlErr) {
		return sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
