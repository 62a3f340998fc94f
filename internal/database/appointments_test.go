package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"medcenter/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAppointment(doctorID int64, date time.Time, slot string) *models.Appointment {
	return &models.Appointment{
		ServiceType: models.ServiceConsultation,
		DoctorID:    doctorID,
		Date:        date,
		TimeSlot:    slot,
		PatientName: "Asha",
		Email:       "asha@example.com",
		Phone:       "+91 90000 00001",
		City:        "Chennai",
		Reason:      "Chest pain",
	}
}

func TestCreateAppointmentWithLock(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 3)

	a := newAppointment(10, date, "10:00 AM")
	require.NoError(t, db.CreateAppointmentWithLock(ctx, a))
	assert.NotZero(t, a.ID)
	assert.Equal(t, "Dr. Rao", a.DoctorName)
	assert.Equal(t, models.StatusPending, a.Status)
	assert.Equal(t, int64(1), a.Version)

	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, date.Format(models.DateLayout), got.Date.Format(models.DateLayout))
	assert.Equal(t, "Chennai", got.City)

	t.Run("SameSlotRejected", func(t *testing.T) {
		err := db.CreateAppointmentWithLock(ctx, newAppointment(10, date, "10:00 AM"))
		assert.ErrorIs(t, err, ErrSlotUnavailable)
	})

	t.Run("OtherDoctorSameSlot", func(t *testing.T) {
		assert.NoError(t, db.CreateAppointmentWithLock(ctx, newAppointment(11, date, "10:00 AM")))
	})

	t.Run("UnknownDoctor", func(t *testing.T) {
		assert.ErrorIs(t, db.CreateAppointmentWithLock(ctx, newAppointment(999, date, "10:00 AM")), ErrUnknownDoctor)
	})

	t.Run("InactiveDoctor", func(t *testing.T) {
		assert.ErrorIs(t, db.CreateAppointmentWithLock(ctx, newAppointment(12, date, "10:00 AM")), ErrUnknownDoctor)
	})

	t.Run("TakenSlots", func(t *testing.T) {
		slots, err := db.GetTakenSlots(ctx, 10, date)
		require.NoError(t, err)
		assert.Equal(t, []string{"10:00 AM"}, slots)
	})
}

func TestCancelledAppointmentFreesSlot(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	date := time.Now().AddDate(0, 0, 1)

	first := newAppointment(10, date, "09:00 AM")
	require.NoError(t, db.CreateAppointmentWithLock(ctx, first))
	require.NoError(t, db.UpdateAppointmentStatusWithVersion(ctx, first.ID, 1, models.StatusCancelled))

	second := newAppointment(10, date, "09:00 AM")
	require.NoError(t, db.CreateAppointmentWithLock(ctx, second))

	// reviving the cancelled one would double-book the slot
	err := db.UpdateAppointmentStatusWithVersion(ctx, first.ID, 2, models.StatusConfirmed)
	assert.ErrorIs(t, err, ErrSlotUnavailable)
}

func TestUpdateAppointmentStatusWithVersion(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()

	a := newAppointment(11, time.Now(), "11:00 AM")
	require.NoError(t, db.CreateAppointmentWithLock(ctx, a))

	require.NoError(t, db.UpdateAppointmentStatusWithVersion(ctx, a.ID, 1, models.StatusConfirmed))
	assert.ErrorIs(t, db.UpdateAppointmentStatusWithVersion(ctx, a.ID, 1, models.StatusCompleted), ErrConcurrentModification)

	got, err := db.GetAppointment(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, got.Status)
	assert.Equal(t, int64(2), got.Version)

	_, err = db.GetAppointment(ctx, 4242)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetAppointmentsByContact(t *testing.T) {
	db := seededDB(t)
	ctx := context.Background()
	base := time.Now().AddDate(0, 0, 1)

	require.NoError(t, db.CreateAppointmentWithLock(ctx, newAppointment(10, base, "09:00 AM")))
	require.NoError(t, db.CreateAppointmentWithLock(ctx, newAppointment(10, base.AddDate(0, 0, 5), "09:00 AM")))
	other := newAppointment(11, base, "09:00 AM")
	other.Email = "someone@example.com"
	other.Phone = "555"
	require.NoError(t, db.CreateAppointmentWithLock(ctx, other))

	list, err := db.GetAppointmentsByContact(ctx, "ASHA@example.com", "")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Date.After(list[1].Date), "newest date first")

	list, err = db.GetAppointmentsByContact(ctx, "", "555")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = db.GetAppointmentsByContact(ctx, "", "")
	require.NoError(t, err)
	assert.Empty(t, list)

	ranged, err := db.GetAppointmentsByDateRange(ctx, base, base)
	require.NoError(t, err)
	assert.Len(t, ranged, 2)
}

func TestConcurrentAppointmentBooking(t *testing.T) {
	logger := zerolog.Nop()
	db, err := NewDB(filepath.Join(t.TempDir(), "concurrency.db"), &logger)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	require.NoError(t, db.ImportCatalog(ctx, testCatalog()))
	date := time.Now().AddDate(0, 0, 2)

	const numGoroutines = 10
	var wg sync.WaitGroup
	results := make(chan error, numGoroutines)

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results <- db.CreateAppointmentWithLock(ctx, newAppointment(10, date, "03:00 PM"))
		}()
	}
	wg.Wait()
	close(results)

	successCount := 0
	for err := range results {
		if err == nil {
			successCount++
		} else {
			assert.ErrorIs(t, err, ErrSlotUnavailable)
		}
	}
	assert.Equal(t, 1, successCount, "only one booking may take the slot")

	slots, err := db.GetTakenSlots(ctx, 10, date)
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}
