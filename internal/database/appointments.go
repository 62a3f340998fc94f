package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"medcenter/internal/models"
)

const appointmentColumns = `id, service_type, doctor_id, doctor_name, date, time_slot, patient_name, email,
    phone, city, reason, status, created_at, updated_at, version`

func scanAppointment(row interface{ Scan(...any) error }) (*models.Appointment, error) {
	var (
		a       models.Appointment
		dateStr string
	)
	err := row.Scan(&a.ID, &a.ServiceType, &a.DoctorID, &a.DoctorName, &dateStr, &a.TimeSlot,
		&a.PatientName, &a.Email, &a.Phone, &a.City, &a.Reason, &a.Status,
		&a.CreatedAt, &a.UpdatedAt, &a.Version)
	if err != nil {
		return nil, err
	}
	a.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse appointment date %s: %w", dateStr, err)
	}
	return &a, nil
}

// CreateAppointmentWithLock checks the doctor and the slot and inserts the
// appointment in one transaction.
func (db *DB) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	doctor, err := db.GetDoctor(ctx, a.DoctorID)
	if err != nil {
		return err
	}
	if !doctor.IsActive {
		return ErrUnknownDoctor
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var taken int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments
        WHERE doctor_id = ? AND date = ? AND time_slot = ? AND status != ?`,
		a.DoctorID, a.Date.Format(models.DateLayout), a.TimeSlot, models.StatusCancelled).Scan(&taken)
	if err != nil {
		return fmt.Errorf("failed to check slot in tx: %w", err)
	}
	if taken > 0 {
		return ErrSlotUnavailable
	}

	if a.Status == "" {
		a.Status = models.StatusPending
	}
	a.DoctorName = doctor.Name

	now := time.Now()
	result, err := tx.ExecContext(ctx, `INSERT INTO appointments (
            service_type, doctor_id, doctor_name, date, time_slot, patient_name, email,
            phone, city, reason, status, created_at, updated_at, version
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ServiceType, a.DoctorID, a.DoctorName, a.Date.Format(models.DateLayout), a.TimeSlot,
		a.PatientName, a.Email, a.Phone, a.City, a.Reason, a.Status, now, now, 1)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("failed to insert appointment in tx: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id in tx: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	a.ID = id
	a.CreatedAt = now
	a.UpdatedAt = now
	a.Version = 1
	return nil
}

func (db *DB) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	a, err := scanAppointment(db.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return a, nil
}

// GetTakenSlots returns the slot labels already booked for a doctor on a day.
func (db *DB) GetTakenSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	rows, err := db.QueryContext(ctx, `SELECT time_slot FROM appointments
        WHERE doctor_id = ? AND date = ? AND status != ?`,
		doctorID, date.Format(models.DateLayout), models.StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("failed to get taken slots: %w", err)
	}
	defer rows.Close()

	var slots []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

// GetAppointmentsByContact lists a patient's appointments, newest date first.
// Either email or phone may be empty.
func (db *DB) GetAppointmentsByContact(ctx context.Context, email, phone string) ([]*models.Appointment, error) {
	if email == "" && phone == "" {
		return nil, nil
	}
	return db.queryAppointments(ctx, `SELECT `+appointmentColumns+` FROM appointments
        WHERE (? != '' AND email = ? COLLATE NOCASE) OR (? != '' AND phone = ?)
        ORDER BY date DESC, id DESC`, email, email, phone, phone)
}

func (db *DB) GetAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error) {
	return db.queryAppointments(ctx, `SELECT `+appointmentColumns+` FROM appointments
        WHERE date >= ? AND date <= ? ORDER BY date ASC, time_slot ASC`,
		start.Format(models.DateLayout), end.Format(models.DateLayout))
}

func (db *DB) queryAppointments(ctx context.Context, query string, args ...any) ([]*models.Appointment, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query appointments: %w", err)
	}
	defer rows.Close()

	var out []*models.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan appointment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (db *DB) UpdateAppointmentStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error {
	result, err := db.ExecContext(ctx, `UPDATE appointments SET status = ?, version = version + 1, updated_at = ?
        WHERE id = ? AND version = ?`, status, time.Now(), id, fromVersion)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlotUnavailable
		}
		return fmt.Errorf("failed to update appointment status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrConcurrentModification
	}
	return nil
}
