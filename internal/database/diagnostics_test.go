package database

import (
	"context"
	"testing"
	"time"

	"medcenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	b := &models.DiagnosticBooking{
		TestIDs:          []int64{1, 2},
		PatientName:      "Ravi",
		Email:            "ravi@example.com",
		Phone:            "555-0101",
		HomeCollection:   true,
		Address:          "12 MG Road",
		Date:             time.Now().AddDate(0, 0, 1),
		TimeSlot:         "09:00 AM",
		TotalPrice:       800,
		PaymentMethod:    models.PaymentMethodCard,
		PaymentStatus:    models.PaymentPaid,
		PaymentReference: "PAY-123",
	}
	require.NoError(t, db.CreateDiagnosticBooking(ctx, b))
	assert.NotZero(t, b.ID)
	assert.Equal(t, models.StatusPending, b.Status)

	got, err := db.GetDiagnosticBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, got.TestIDs)
	assert.Empty(t, got.PackageIDs)
	assert.True(t, got.HomeCollection)
	assert.Equal(t, "PAY-123", got.PaymentReference)

	list, err := db.GetDiagnosticBookingsByEmail(ctx, "RAVI@example.com")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	_, err = db.GetDiagnosticBooking(ctx, 999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactMessages(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	for _, subject := range []string{"first", "second"} {
		require.NoError(t, db.CreateContactMessage(ctx, &models.ContactMessage{
			Name: "Nina", Email: "nina@example.com", Subject: subject, Message: "Hello",
		}))
	}

	msgs, err := db.GetContactMessages(ctx, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "second", msgs[0].Subject)

	msgs, err = db.GetContactMessages(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, msgs, 1)
}
