package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewDrafts_PrefillIdentity(t *testing.T) {
	t.Run("NilIdentity", func(t *testing.T) {
		d := NewAppointmentDraft(nil)
		assert.Empty(t, d.PatientName)
		assert.Empty(t, d.Email)
		assert.Nil(t, d.Doctor)
		assert.True(t, d.Date.IsZero())
	})

	t.Run("Appointment", func(t *testing.T) {
		d := NewAppointmentDraft(&Identity{Name: " Asha Rao ", Email: "asha@example.com"})
		assert.Equal(t, "Asha Rao", d.PatientName)
		assert.Equal(t, "asha@example.com", d.Email)
		assert.Empty(t, d.Phone)
	})

	t.Run("Diagnostics", func(t *testing.T) {
		d := NewDiagnosticsDraft(&Identity{Name: "Ravi"})
		assert.Equal(t, "Ravi", d.PatientName)
		assert.Empty(t, d.Email)
		assert.Empty(t, d.TestIDs)
	})
}

func TestSubmitResult_OK(t *testing.T) {
	assert.True(t, SubmitResult{StatusCode: 200}.OK())
	assert.True(t, SubmitResult{StatusCode: 201}.OK())
	assert.False(t, SubmitResult{StatusCode: 409}.OK())
	assert.False(t, SubmitResult{StatusCode: 0}.OK())
}

func TestDoctorRef(t *testing.T) {
	d := Doctor{ID: 7, Name: "Dr. Mehta", Specialty: "Cardiology", Bio: "long text"}
	ref := d.Ref()
	assert.Equal(t, &DoctorRef{ID: 7, Name: "Dr. Mehta", Specialty: "Cardiology"}, ref)
}
