package wizard

import (
	"context"
	"testing"
	"time"

	"medcenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRules_NotPast(t *testing.T) {
	r := testRules()
	assert.False(t, r.NotPast(time.Time{}))
	assert.True(t, r.NotPast(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)), "today is allowed")
	assert.True(t, r.NotPast(fixedNow.AddDate(0, 1, 0)))
	assert.False(t, r.NotPast(fixedNow.AddDate(0, 0, -1)))
}

func TestRules_Defaults(t *testing.T) {
	r := Rules{}
	assert.True(t, r.ValidServiceType(models.ServiceTelehealth))
	assert.False(t, r.ValidServiceType("massage"))
	assert.True(t, r.ValidTimeSlot("09:00 AM"))
	assert.False(t, r.ValidTimeSlot("9am"))

	custom := Rules{TimeSlots: []string{"08:00"}, ServiceTypes: []string{"lab"}}
	assert.True(t, custom.ValidTimeSlot("08:00"))
	assert.False(t, custom.ValidTimeSlot("09:00 AM"))
	assert.Equal(t, []string{"lab"}, custom.AllowedServiceTypes())
}

func TestDiagnosticsFlow(t *testing.T) {
	seq := NewDiagnosticsSequencer(testRules())
	draft := models.NewDiagnosticsDraft(&models.Identity{Name: "Meera"})

	assert.Equal(t, MsgSelectTests, UserMessage(seq.Advance(draft)))
	draft.PackageIDs = []int64{3}
	require.NoError(t, seq.Advance(draft))

	assert.Equal(t, MsgPatientDetails, UserMessage(seq.Advance(draft)))
	draft.Phone = "555-0100"
	require.NoError(t, seq.Advance(draft))

	draft.Date = fixedNow.AddDate(0, 0, 1)
	assert.Equal(t, MsgCollectionSlot, UserMessage(seq.Advance(draft)), "time slot still missing")
	draft.TimeSlot = "09:00 AM"
	require.NoError(t, seq.Advance(draft))

	assert.True(t, seq.IsTerminal())
	assert.Equal(t, MsgPaymentMethod, UserMessage(seq.ValidateThrough(draft)))
}

func TestAppointmentRequest(t *testing.T) {
	draft := &models.AppointmentDraft{
		ServiceType: models.ServiceFollowUp,
		Doctor:      &models.DoctorRef{ID: 12, Name: "Dr. Sen"},
		Date:        time.Date(2026, 4, 2, 18, 30, 0, 0, time.FixedZone("IST", 5*3600+1800)),
		TimeSlot:    "03:00 PM",
		PatientName: "Kiran",
		Email:       "kiran@example.com",
		Phone:       "123",
		City:        "Mumbai",
		Reason:      "Checkup",
	}
	req := AppointmentRequest(draft)
	assert.Equal(t, models.AppointmentRequest{
		ServiceType:     models.ServiceFollowUp,
		DoctorID:        12,
		AppointmentDate: "2026-04-02",
		TimeSlot:        "03:00 PM",
		PatientName:     "Kiran",
		Email:           "kiran@example.com",
		Phone:           "123",
		City:            "Mumbai",
		Reason:          "Checkup",
	}, req)

	empty := AppointmentRequest(&models.AppointmentDraft{})
	assert.Zero(t, empty.DoctorID)
	assert.Empty(t, empty.AppointmentDate)
}

func TestDiagnosticsRequest_CopiesSelections(t *testing.T) {
	draft := &models.DiagnosticsDraft{TestIDs: []int64{1, 2}, Date: fixedNow, PaymentMethod: "card"}
	req := DiagnosticsRequest(draft)
	draft.TestIDs[0] = 99
	assert.Equal(t, []int64{1, 2}, req.TestIDs)
	assert.Equal(t, "2026-03-10", req.CollectionDate)
}

func TestStaticIdentity(t *testing.T) {
	_, ok := StaticIdentity{}.Identity(context.Background())
	assert.False(t, ok)

	id, ok := StaticIdentity{Name: " Ana "}.Identity(context.Background())
	require.True(t, ok)
	assert.Equal(t, "Ana", id.Name)
}

func TestStartDrafts(t *testing.T) {
	ctx := context.Background()

	d := StartAppointment(ctx, StaticIdentity{Name: "Ana Silva", Email: "ana@example.com"})
	assert.Equal(t, "Ana Silva", d.PatientName)
	assert.Equal(t, "ana@example.com", d.Email)
	assert.Empty(t, d.Phone)

	anon := StartAppointment(ctx, nil)
	assert.Empty(t, anon.PatientName)

	dd := StartDiagnostics(ctx, StaticIdentity{Email: "lab@example.com"})
	assert.Equal(t, "lab@example.com", dd.Email)
	assert.Empty(t, dd.TestIDs)
}
