package service

import (
	"errors"
	"net/http"

	"medcenter/internal/database"
	"medcenter/internal/models"
	"medcenter/internal/payment"
	"medcenter/internal/wizard"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrRateLimited     = errors.New("too many requests")
	ErrSessionNotFound = errors.New("wizard session not found")
	ErrUnknownFlow     = errors.New("unknown wizard flow")
	ErrUnknownItem     = errors.New("unknown test or package")
)

// PaymentDeclinedError carries the gateway's reason to the patient.
type PaymentDeclinedError struct {
	Reason    string
	Reference string
}

func (e *PaymentDeclinedError) Error() string { return e.Reason }

// UserMessage maps any service error to the text shown to the patient.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var declined *PaymentDeclinedError
	if errors.As(err, &declined) {
		return declined.Reason
	}

	switch {
	case errors.Is(err, database.ErrSlotUnavailable):
		return "This time slot is no longer available. Please choose another time."
	case errors.Is(err, database.ErrPastDate):
		return "Appointments cannot be booked in the past."
	case errors.Is(err, database.ErrTooFarAhead):
		return "This date is too far ahead. Please choose an earlier date."
	case errors.Is(err, database.ErrInvalidSlot):
		return "Please select a valid time slot."
	case errors.Is(err, database.ErrInvalidServiceType):
		return "Please select a valid service type."
	case errors.Is(err, database.ErrUnknownDoctor):
		return "The selected doctor is not available."
	case errors.Is(err, database.ErrConcurrentModification):
		return "The record was changed by someone else. Please reload and try again."
	case errors.Is(err, database.ErrInvalidStatus):
		return "This status change is not allowed."
	case errors.Is(err, database.ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return "Not found."
	case errors.Is(err, ErrUnknownItem):
		return "One of the selected tests is no longer offered."
	case errors.Is(err, ErrRateLimited):
		return "Too many messages. Please try again in a few minutes."
	case errors.Is(err, ErrInvalidInput):
		var in *InputError
		if errors.As(err, &in) {
			return in.Detail
		}
		return "Please check the form and try again."
	case errors.Is(err, payment.ErrUnsupportedMethod):
		return "Please choose a supported payment method."
	case errors.Is(err, payment.ErrCardRequired):
		return "Please enter your card number."
	}

	return wizard.UserMessage(err)
}

// StatusCode maps a service error to an HTTP status.
func StatusCode(err error) int {
	var declined *PaymentDeclinedError
	var validation *wizard.ValidationError
	var refused *wizard.ApplicationError
	var transport *wizard.TransportError
	switch {
	case err == nil:
		return http.StatusOK
	case errors.As(err, &refused):
		if refused.StatusCode >= http.StatusBadRequest {
			return refused.StatusCode
		}
		return http.StatusBadGateway
	case errors.As(err, &transport):
		return http.StatusBadGateway
	case errors.As(err, &declined):
		return http.StatusPaymentRequired
	case errors.As(err, &validation), errors.Is(err, wizard.ErrNotOnReviewStep):
		return http.StatusUnprocessableEntity
	case errors.Is(err, database.ErrSlotUnavailable), errors.Is(err, database.ErrConcurrentModification):
		return http.StatusConflict
	case errors.Is(err, database.ErrNotFound), errors.Is(err, ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, database.ErrPastDate), errors.Is(err, database.ErrTooFarAhead),
		errors.Is(err, database.ErrInvalidSlot), errors.Is(err, database.ErrInvalidServiceType),
		errors.Is(err, database.ErrUnknownDoctor), errors.Is(err, database.ErrInvalidStatus),
		errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownItem), errors.Is(err, ErrUnknownFlow),
		errors.Is(err, payment.ErrUnsupportedMethod), errors.Is(err, payment.ErrCardRequired),
		errors.Is(err, payment.ErrInvalidAmount):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// SubmitResultFor builds the {success, error?} reply for a failed creation.
// Internal failures carry no message so clients fall back to their generic one.
func SubmitResultFor(err error) *models.SubmitResult {
	code := StatusCode(err)
	res := &models.SubmitResult{StatusCode: code}
	if code != http.StatusInternalServerError {
		res.Error = UserMessage(err)
	}
	return res
}

// InputError is a rejected field; Detail is shown to the patient as is.
type InputError struct {
	Detail string
}

func (e *InputError) Error() string { return "invalid input: " + e.Detail }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalid(detail string) error {
	return &InputError{Detail: detail}
}
