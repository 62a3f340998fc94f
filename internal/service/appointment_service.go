package service

import (
	"context"
	"net/http"
	"strings"
	"time"

	"medcenter/internal/database"
	"medcenter/internal/domain"
	"medcenter/internal/events"
	"medcenter/internal/metrics"
	"medcenter/internal/models"
	"medcenter/internal/wizard"

	"github.com/rs/zerolog"
)

type AppointmentService struct {
	repo           domain.Repository
	eventBus       domain.EventPublisher
	sheetsWorker   domain.SyncWorker
	rules          wizard.Rules
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewAppointmentService(
	repo domain.Repository,
	eventBus domain.EventPublisher,
	sheetsWorker domain.SyncWorker,
	rules wizard.Rules,
	maxBookingDays int,
	logger *zerolog.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:           repo,
		eventBus:       eventBus,
		sheetsWorker:   sheetsWorker,
		rules:          rules,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

func (s *AppointmentService) now() time.Time {
	if s.rules.Now == nil {
		return time.Now()
	}
	return s.rules.Now()
}

// ValidateDate accepts today through today+maxBookingDays.
func (s *AppointmentService) ValidateDate(date time.Time) error {
	return validateDate(date, s.now(), s.maxBookingDays)
}

func validateDate(date, now time.Time, maxDays int) error {
	if date.IsZero() {
		return invalid("Please select a date.")
	}
	day := date.Format(models.DateLayout)
	if day < now.Format(models.DateLayout) {
		return database.ErrPastDate
	}
	if maxDays > 0 && day > now.AddDate(0, 0, maxDays).Format(models.DateLayout) {
		return database.ErrTooFarAhead
	}
	return nil
}

func (s *AppointmentService) ValidateSlot(slot string) error {
	if !s.rules.ValidTimeSlot(slot) {
		return database.ErrInvalidSlot
	}
	return nil
}

func (s *AppointmentService) ValidateServiceType(serviceType string) error {
	if !s.rules.ValidServiceType(serviceType) {
		return database.ErrInvalidServiceType
	}
	return nil
}

// Create validates req and books the slot. The (doctor, date, slot) triple
// is claimed inside a database transaction.
func (s *AppointmentService) Create(ctx context.Context, req models.AppointmentRequest) (*models.Appointment, error) {
	a, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateAppointmentWithLock(ctx, a); err != nil {
		s.logger.Warn().Err(err).
			Int64("doctor_id", a.DoctorID).
			Str("date", a.Date.Format(models.DateLayout)).
			Str("time_slot", a.TimeSlot).
			Msg("appointment not created")
		return nil, err
	}

	s.logger.Info().
		Int64("appointment_id", a.ID).
		Int64("doctor_id", a.DoctorID).
		Str("date", a.Date.Format(models.DateLayout)).
		Str("time_slot", a.TimeSlot).
		Msg("appointment created")

	s.publishEvent(events.EventBookingCreated, *a, "patient")
	s.enqueueSync(ctx, *a, models.SyncTaskUpsert)
	return a, nil
}

func (s *AppointmentService) fromRequest(req models.AppointmentRequest) (*models.Appointment, error) {
	if err := s.ValidateServiceType(req.ServiceType); err != nil {
		return nil, err
	}
	if req.DoctorID <= 0 {
		return nil, database.ErrUnknownDoctor
	}
	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(req.AppointmentDate), time.Local)
	if err != nil {
		return nil, invalid("Please select a valid date (YYYY-MM-DD).")
	}
	if err := s.ValidateDate(date); err != nil {
		return nil, err
	}
	if err := s.ValidateSlot(req.TimeSlot); err != nil {
		return nil, err
	}
	if !notBlank(req.Phone) || !notBlank(req.City) || !notBlank(req.Reason) {
		return nil, invalid(wizard.MsgContactDetails)
	}

	return &models.Appointment{
		ServiceType: req.ServiceType,
		DoctorID:    req.DoctorID,
		Date:        date,
		TimeSlot:    req.TimeSlot,
		PatientName: strings.TrimSpace(req.PatientName),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		City:        strings.TrimSpace(req.City),
		Reason:      strings.TrimSpace(req.Reason),
		Status:      models.StatusPending,
	}, nil
}

func (s *AppointmentService) Get(ctx context.Context, id int64) (*models.Appointment, error) {
	return s.repo.GetAppointment(ctx, id)
}

// ListForPatient returns a patient's appointments, newest date first.
func (s *AppointmentService) ListForPatient(ctx context.Context, email, phone string) ([]*models.Appointment, error) {
	email, phone = strings.TrimSpace(email), strings.TrimSpace(phone)
	if email == "" && phone == "" {
		return nil, invalid("Please provide an email or phone number.")
	}
	return s.repo.GetAppointmentsByContact(ctx, email, phone)
}

func (s *AppointmentService) ListByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error) {
	if end.Before(start) {
		return nil, invalid("The end date must not be before the start date.")
	}
	return s.repo.GetAppointmentsByDateRange(ctx, start, end)
}

// UpdateStatus moves an appointment to status if the caller saw version.
func (s *AppointmentService) UpdateStatus(ctx context.Context, id, version int64, status, changedBy string) (*models.Appointment, error) {
	current, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	if !statusTransitionAllowed(current.Status, status) {
		return nil, database.ErrInvalidStatus
	}

	if err := s.repo.UpdateAppointmentStatusWithVersion(ctx, id, version, status); err != nil {
		return nil, err
	}

	updated, err := s.repo.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("appointment_id", id).Str("from", current.Status).Str("to", status).
		Str("changed_by", changedBy).Msg("appointment status changed")
	s.publishEvent(events.EventBookingStatusChanged, *updated, changedBy)
	s.enqueueSync(ctx, *updated, models.SyncTaskStatus)
	return updated, nil
}

func statusTransitionAllowed(from, to string) bool {
	switch from {
	case models.StatusPending:
		return to == models.StatusConfirmed || to == models.StatusCancelled
	case models.StatusConfirmed:
		return to == models.StatusCompleted || to == models.StatusCancelled
	default:
		return false
	}
}

// Creator exposes Create as the in-process target of an appointment Gate.
func (s *AppointmentService) Creator() wizard.Creator[models.AppointmentRequest] {
	return wizard.CreatorFunc[models.AppointmentRequest](func(ctx context.Context, req models.AppointmentRequest) (*models.SubmitResult, error) {
		a, err := s.Create(ctx, req)
		if err != nil {
			metrics.IncSubmission(models.FlowAppointment, "rejected")
			return SubmitResultFor(err), nil
		}
		metrics.IncSubmission(models.FlowAppointment, "created")
		return &models.SubmitResult{StatusCode: http.StatusCreated, Success: true, ID: a.ID}, nil
	})
}

func (s *AppointmentService) publishEvent(eventType string, a models.Appointment, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.AppointmentEventPayload{
		AppointmentID: a.ID,
		ServiceType:   a.ServiceType,
		DoctorID:      a.DoctorID,
		DoctorName:    a.DoctorName,
		Date:          a.Date,
		TimeSlot:      a.TimeSlot,
		PatientName:   a.PatientName,
		Phone:         a.Phone,
		Status:        a.Status,
		ChangedBy:     changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("appointment_id", a.ID).Msg("publish event error")
	}
}

func (s *AppointmentService) enqueueSync(ctx context.Context, a models.Appointment, taskType string) {
	if s.sheetsWorker == nil {
		return
	}

	var status string
	if taskType == models.SyncTaskStatus {
		status = a.Status
	}

	if err := s.sheetsWorker.EnqueueTask(ctx, taskType, a.ID, &a, status); err != nil {
		s.logger.Error().Err(err).Int64("appointment_id", a.ID).Str("task", taskType).Msg("sheets enqueue error")
	}
}

func notBlank(v string) bool { return strings.TrimSpace(v) != "" }
