package repository

import (
	"time"

	"medcenter/internal/models"
)

func sampleSession(id string) *models.WizardSession {
	now := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.WizardSession{
		ID:   id,
		Flow: models.FlowAppointment,
		Step: 3,
		Appointment: &models.AppointmentDraft{
			ServiceType: models.ServiceConsultation,
			Doctor:      &models.DoctorRef{ID: 7, Name: "Dr. Das"},
			PatientName: "Leela",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}
