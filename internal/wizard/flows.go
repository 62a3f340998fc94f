package wizard

import (
	"slices"
	"strings"
	"time"

	"medcenter/internal/models"
)

const (
	MsgSelectService  = "Please select a service type"
	MsgSelectDoctor   = "Please select a doctor"
	MsgSelectDate     = "Please select a date (today or later)"
	MsgSelectTime     = "Please select a time slot"
	MsgContactDetails = "Please fill in your phone, city and reason for visit"

	MsgSelectTests    = "Please select at least one test or package"
	MsgPatientDetails = "Please enter the patient name and phone"
	MsgCollectionSlot = "Please choose a collection date and time"
	MsgPaymentMethod  = "Please choose a payment method"
)

// Rules parameterise both flows with the configured choices and a clock.
type Rules struct {
	ServiceTypes []string
	TimeSlots    []string
	Now          func() time.Time
}

func (r Rules) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

func (r Rules) serviceTypes() []string {
	if len(r.ServiceTypes) == 0 {
		return models.DefaultServiceTypes
	}
	return r.ServiceTypes
}

func (r Rules) timeSlots() []string {
	if len(r.TimeSlots) == 0 {
		return models.DefaultTimeSlots
	}
	return r.TimeSlots
}

// ValidServiceType reports whether s is one of the configured service types.
func (r Rules) ValidServiceType(s string) bool {
	return slices.Contains(r.serviceTypes(), s)
}

// ValidTimeSlot reports whether s is one of the configured slot labels.
func (r Rules) ValidTimeSlot(s string) bool {
	return slices.Contains(r.timeSlots(), s)
}

// NotPast reports whether d is today or later in the rules' clock.
func (r Rules) NotPast(d time.Time) bool {
	if d.IsZero() {
		return false
	}
	return d.Format(models.DateLayout) >= r.now().Format(models.DateLayout)
}

// AllowedTimeSlots returns the effective slot labels.
func (r Rules) AllowedTimeSlots() []string { return r.timeSlots() }

// AllowedServiceTypes returns the effective service types.
func (r Rules) AllowedServiceTypes() []string { return r.serviceTypes() }

func AppointmentSteps(r Rules) []Step[*models.AppointmentDraft] {
	return []Step[*models.AppointmentDraft]{
		{
			Name:     "service",
			Message:  MsgSelectService,
			Required: func(d *models.AppointmentDraft) bool { return r.ValidServiceType(d.ServiceType) },
		},
		{
			Name:     "doctor",
			Message:  MsgSelectDoctor,
			Required: func(d *models.AppointmentDraft) bool { return d.Doctor != nil && d.Doctor.ID > 0 },
		},
		{
			Name:     "date",
			Message:  MsgSelectDate,
			Required: func(d *models.AppointmentDraft) bool { return r.NotPast(d.Date) },
		},
		{
			Name:     "time",
			Message:  MsgSelectTime,
			Required: func(d *models.AppointmentDraft) bool { return r.ValidTimeSlot(d.TimeSlot) },
		},
		{
			Name:    "contact",
			Message: MsgContactDetails,
			Required: func(d *models.AppointmentDraft) bool {
				return notBlank(d.Phone) && notBlank(d.City) && notBlank(d.Reason)
			},
		},
		{Name: "review"},
	}
}

func DiagnosticsSteps(r Rules) []Step[*models.DiagnosticsDraft] {
	return []Step[*models.DiagnosticsDraft]{
		{
			Name:     "tests",
			Message:  MsgSelectTests,
			Required: func(d *models.DiagnosticsDraft) bool { return len(d.TestIDs)+len(d.PackageIDs) > 0 },
		},
		{
			Name:     "patient",
			Message:  MsgPatientDetails,
			Required: func(d *models.DiagnosticsDraft) bool { return notBlank(d.PatientName) && notBlank(d.Phone) },
		},
		{
			Name:    "schedule",
			Message: MsgCollectionSlot,
			Required: func(d *models.DiagnosticsDraft) bool {
				return r.NotPast(d.Date) && r.ValidTimeSlot(d.TimeSlot)
			},
		},
		{
			Name:     "payment",
			Message:  MsgPaymentMethod,
			Required: func(d *models.DiagnosticsDraft) bool { return notBlank(d.PaymentMethod) },
		},
	}
}

func NewAppointmentSequencer(r Rules) *Sequencer[*models.AppointmentDraft] {
	return NewSequencer(AppointmentSteps(r))
}

func NewDiagnosticsSequencer(r Rules) *Sequencer[*models.DiagnosticsDraft] {
	return NewSequencer(DiagnosticsSteps(r))
}

// AppointmentRequest maps a draft onto the booking endpoint's keys.
func AppointmentRequest(d *models.AppointmentDraft) models.AppointmentRequest {
	req := models.AppointmentRequest{
		ServiceType: d.ServiceType,
		TimeSlot:    d.TimeSlot,
		PatientName: d.PatientName,
		Email:       d.Email,
		Phone:       d.Phone,
		City:        d.City,
		Reason:      d.Reason,
	}
	if d.Doctor != nil {
		req.DoctorID = d.Doctor.ID
	}
	if !d.Date.IsZero() {
		req.AppointmentDate = d.Date.Format(models.DateLayout)
	}
	return req
}

func DiagnosticsRequest(d *models.DiagnosticsDraft) models.DiagnosticBookingRequest {
	req := models.DiagnosticBookingRequest{
		TestIDs:        slices.Clone(d.TestIDs),
		PackageIDs:     slices.Clone(d.PackageIDs),
		PatientName:    d.PatientName,
		Email:          d.Email,
		Phone:          d.Phone,
		Address:        d.Address,
		HomeCollection: d.HomeCollection,
		TimeSlot:       d.TimeSlot,
		PaymentMethod:  d.PaymentMethod,
		CardNumber:     d.CardNumber,
	}
	if !d.Date.IsZero() {
		req.CollectionDate = d.Date.Format(models.DateLayout)
	}
	return req
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
