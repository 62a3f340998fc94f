package models

import (
	"strings"
	"time"
)

// Identity is the optional known user used to pre-fill contact fields.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type DoctorRef struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
}

// AppointmentDraft is a booking-in-progress assembled across the appointment wizard.
type AppointmentDraft struct {
	ServiceType string     `json:"service_type"`
	Doctor      *DoctorRef `json:"doctor,omitempty"`
	Date        time.Time  `json:"date"`
	TimeSlot    string     `json:"time_slot"`
	PatientName string     `json:"patient_name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone"`
	City        string     `json:"city"`
	Reason      string     `json:"reason"`
}

func NewAppointmentDraft(id *Identity) *AppointmentDraft {
	d := &AppointmentDraft{}
	if id != nil {
		d.PatientName = strings.TrimSpace(id.Name)
		d.Email = strings.TrimSpace(id.Email)
	}
	return d
}

// DiagnosticsDraft is a diagnostics booking-in-progress.
type DiagnosticsDraft struct {
	TestIDs        []int64   `json:"test_ids"`
	PackageIDs     []int64   `json:"package_ids"`
	PatientName    string    `json:"patient_name"`
	Email          string    `json:"email"`
	Phone          string    `json:"phone"`
	Address        string    `json:"address"`
	HomeCollection bool      `json:"home_collection"`
	Date           time.Time `json:"date"`
	TimeSlot       string    `json:"time_slot"`
	PaymentMethod  string    `json:"payment_method"`
	CardNumber     string    `json:"card_number,omitempty"`
}

func NewDiagnosticsDraft(id *Identity) *DiagnosticsDraft {
	d := &DiagnosticsDraft{}
	if id != nil {
		d.PatientName = strings.TrimSpace(id.Name)
		d.Email = strings.TrimSpace(id.Email)
	}
	return d
}

// WizardSession is the persisted state of one wizard flow instance.
type WizardSession struct {
	ID          string            `json:"id"`
	Flow        string            `json:"flow"`
	Step        int               `json:"step"`
	Appointment *AppointmentDraft `json:"appointment,omitempty"`
	Diagnostics *DiagnosticsDraft `json:"diagnostics,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}
