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

type DiagnosticsService struct {
	repo           domain.Repository
	catalog        *CatalogService
	payments       domain.PaymentGateway
	eventBus       domain.EventPublisher
	rules          wizard.Rules
	maxBookingDays int
	logger         *zerolog.Logger
}

func NewDiagnosticsService(
	repo domain.Repository,
	catalog *CatalogService,
	payments domain.PaymentGateway,
	eventBus domain.EventPublisher,
	rules wizard.Rules,
	maxBookingDays int,
	logger *zerolog.Logger,
) *DiagnosticsService {
	return &DiagnosticsService{
		repo:           repo,
		catalog:        catalog,
		payments:       payments,
		eventBus:       eventBus,
		rules:          rules,
		maxBookingDays: maxBookingDays,
		logger:         logger,
	}
}

func (s *DiagnosticsService) now() time.Time {
	if s.rules.Now == nil {
		return time.Now()
	}
	return s.rules.Now()
}

// Book prices the selection, charges it and stores the booking. A declined
// payment stores nothing and returns *PaymentDeclinedError.
func (s *DiagnosticsService) Book(ctx context.Context, req models.DiagnosticBookingRequest) (*models.DiagnosticBooking, error) {
	b, err := s.fromRequest(req)
	if err != nil {
		return nil, err
	}

	total, err := s.catalog.Quote(ctx, b.TestIDs, b.PackageIDs)
	if err != nil {
		return nil, err
	}
	b.TotalPrice = total

	res, err := s.payments.Charge(ctx, models.PaymentRequest{
		Method:     b.PaymentMethod,
		Amount:     total,
		CardNumber: req.CardNumber,
		Payer:      b.PatientName,
	})
	if err != nil {
		return nil, err
	}
	if res.Status == models.PaymentDeclined {
		s.logger.Info().Str("reference", res.Reference).Msg("diagnostics payment declined")
		return nil, &PaymentDeclinedError{Reason: res.Reason, Reference: res.Reference}
	}

	b.PaymentStatus = res.Status
	b.PaymentReference = res.Reference
	b.Status = models.StatusPending
	if res.Status == models.PaymentPaid {
		b.Status = models.StatusConfirmed
	}

	if err := s.repo.CreateDiagnosticBooking(ctx, b); err != nil {
		// оплата прошла, а запись не сохранилась: нужен ручной разбор по reference
		s.logger.Error().Err(err).Str("reference", res.Reference).Msg("diagnostic booking not stored after payment")
		return nil, err
	}

	s.logger.Info().
		Int64("booking_id", b.ID).
		Str("payment_status", b.PaymentStatus).
		Str("total", models.FormatPrice(b.TotalPrice)).
		Msg("diagnostic booking created")
	s.publishEvent(*b)
	return b, nil
}

func (s *DiagnosticsService) fromRequest(req models.DiagnosticBookingRequest) (*models.DiagnosticBooking, error) {
	if len(req.TestIDs) == 0 && len(req.PackageIDs) == 0 {
		return nil, invalid(wizard.MsgSelectTests)
	}
	if !notBlank(req.PatientName) || !notBlank(req.Phone) {
		return nil, invalid(wizard.MsgPatientDetails)
	}
	if req.HomeCollection && !notBlank(req.Address) {
		return nil, invalid("Please enter the address for home collection.")
	}
	date, err := time.ParseInLocation(models.DateLayout, strings.TrimSpace(req.CollectionDate), time.Local)
	if err != nil {
		return nil, invalid(wizard.MsgCollectionSlot)
	}
	if err := validateDate(date, s.now(), s.maxBookingDays); err != nil {
		return nil, err
	}
	if !s.rules.ValidTimeSlot(req.TimeSlot) {
		return nil, database.ErrInvalidSlot
	}
	if !notBlank(req.PaymentMethod) {
		return nil, invalid(wizard.MsgPaymentMethod)
	}

	return &models.DiagnosticBooking{
		TestIDs:        uniqueIDs(req.TestIDs),
		PackageIDs:     uniqueIDs(req.PackageIDs),
		PatientName:    strings.TrimSpace(req.PatientName),
		Email:          strings.TrimSpace(req.Email),
		Phone:          strings.TrimSpace(req.Phone),
		Address:        strings.TrimSpace(req.Address),
		HomeCollection: req.HomeCollection,
		Date:           date,
		TimeSlot:       req.TimeSlot,
		PaymentMethod:  req.PaymentMethod,
	}, nil
}

func (s *DiagnosticsService) ListForPatient(ctx context.Context, email string) ([]*models.DiagnosticBooking, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, invalid("Please provide an email.")
	}
	return s.repo.GetDiagnosticBookingsByEmail(ctx, email)
}

// Creator exposes Book as the in-process target of a diagnostics Gate.
func (s *DiagnosticsService) Creator() wizard.Creator[models.DiagnosticBookingRequest] {
	return wizard.CreatorFunc[models.DiagnosticBookingRequest](func(ctx context.Context, req models.DiagnosticBookingRequest) (*models.SubmitResult, error) {
		b, err := s.Book(ctx, req)
		if err != nil {
			metrics.IncSubmission(models.FlowDiagnostics, "rejected")
			return SubmitResultFor(err), nil
		}
		metrics.IncSubmission(models.FlowDiagnostics, "created")
		return &models.SubmitResult{
			StatusCode: http.StatusCreated,
			Success:    true,
			ID:         b.ID,
			Reference:  b.PaymentReference,
		}, nil
	})
}

func (s *DiagnosticsService) publishEvent(b models.DiagnosticBooking) {
	if s.eventBus == nil {
		return
	}

	payload := events.DiagnosticEventPayload{
		BookingID:        b.ID,
		PatientName:      b.PatientName,
		Phone:            b.Phone,
		Date:             b.Date,
		TimeSlot:         b.TimeSlot,
		HomeCollection:   b.HomeCollection,
		TotalPrice:       b.TotalPrice,
		PaymentStatus:    b.PaymentStatus,
		PaymentReference: b.PaymentReference,
	}
	if err := s.eventBus.PublishJSON(events.EventDiagnosticBookingCreated, payload); err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []int64) []int64 {
	if ids == nil {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
