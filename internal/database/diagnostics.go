package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"medcenter/internal/models"
)

func (db *DB) CreateDiagnosticBooking(ctx context.Context, b *models.DiagnosticBooking) error {
	testIDs, err := json.Marshal(nonNilIDs(b.TestIDs))
	if err != nil {
		return err
	}
	packageIDs, err := json.Marshal(nonNilIDs(b.PackageIDs))
	if err != nil {
		return err
	}
	if b.Status == "" {
		b.Status = models.StatusPending
	}

	now := time.Now()
	result, err := db.ExecContext(ctx, `INSERT INTO diagnostic_bookings (
            test_ids, package_ids, patient_name, email, phone, address, home_collection, date, time_slot,
            total_price, payment_method, payment_status, payment_reference, status, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(testIDs), string(packageIDs), b.PatientName, b.Email, b.Phone, b.Address, b.HomeCollection,
		b.Date.Format(models.DateLayout), b.TimeSlot, b.TotalPrice, b.PaymentMethod, b.PaymentStatus,
		b.PaymentReference, b.Status, now)
	if err != nil {
		return fmt.Errorf("failed to create diagnostic booking: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	b.ID = id
	b.CreatedAt = now
	return nil
}

const diagnosticColumns = `id, test_ids, package_ids, patient_name, email, phone, address, home_collection, date,
    time_slot, total_price, payment_method, payment_status, payment_reference, status, created_at`

func scanDiagnosticBooking(row interface{ Scan(...any) error }) (*models.DiagnosticBooking, error) {
	var (
		b                   models.DiagnosticBooking
		testIDs, packageIDs string
		dateStr             string
	)
	err := row.Scan(&b.ID, &testIDs, &packageIDs, &b.PatientName, &b.Email, &b.Phone, &b.Address,
		&b.HomeCollection, &dateStr, &b.TimeSlot, &b.TotalPrice, &b.PaymentMethod, &b.PaymentStatus,
		&b.PaymentReference, &b.Status, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(testIDs), &b.TestIDs); err != nil {
		return nil, fmt.Errorf("diagnostic booking %d test ids: %w", b.ID, err)
	}
	if err := json.Unmarshal([]byte(packageIDs), &b.PackageIDs); err != nil {
		return nil, fmt.Errorf("diagnostic booking %d package ids: %w", b.ID, err)
	}
	b.Date, err = time.Parse(models.DateLayout, dateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse collection date %s: %w", dateStr, err)
	}
	return &b, nil
}

func (db *DB) GetDiagnosticBooking(ctx context.Context, id int64) (*models.DiagnosticBooking, error) {
	b, err := scanDiagnosticBooking(db.QueryRowContext(ctx,
		`SELECT `+diagnosticColumns+` FROM diagnostic_bookings WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnostic booking: %w", err)
	}
	return b, nil
}

func (db *DB) GetDiagnosticBookingsByEmail(ctx context.Context, email string) ([]*models.DiagnosticBooking, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+diagnosticColumns+` FROM diagnostic_bookings
        WHERE email = ? COLLATE NOCASE ORDER BY date DESC, id DESC`, email)
	if err != nil {
		return nil, fmt.Errorf("failed to get diagnostic bookings: %w", err)
	}
	defer rows.Close()

	var out []*models.DiagnosticBooking
	for rows.Next() {
		b, err := scanDiagnosticBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan diagnostic booking: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
