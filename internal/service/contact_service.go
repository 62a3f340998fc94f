package service

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"medcenter/internal/domain"
	"medcenter/internal/events"
	"medcenter/internal/metrics"
	"medcenter/internal/models"

	"github.com/rs/zerolog"
)

const maxContactMessageLen = 4000

type ContactService struct {
	repo     domain.Repository
	limiter  domain.SessionRepository
	eventBus domain.EventPublisher
	limit    int
	window   time.Duration
	logger   *zerolog.Logger
}

func NewContactService(
	repo domain.Repository,
	limiter domain.SessionRepository,
	eventBus domain.EventPublisher,
	limit int,
	window time.Duration,
	logger *zerolog.Logger,
) *ContactService {
	if limit <= 0 {
		limit = models.ContactRateLimitMessages
	}
	if window <= 0 {
		window = models.ContactRateLimitWindow * time.Second
	}
	return &ContactService{
		repo:     repo,
		limiter:  limiter,
		eventBus: eventBus,
		limit:    limit,
		window:   window,
		logger:   logger,
	}
}

// Submit validates and stores a contact-form message from client (an IP or
// chat id) and notifies subscribers.
func (s *ContactService) Submit(ctx context.Context, client string, m *models.ContactMessage) error {
	if err := validateContact(m); err != nil {
		metrics.IncContact("invalid")
		return err
	}

	if s.limiter != nil && client != "" {
		allowed, err := s.limiter.CheckRateLimit(ctx, "contact:"+client, s.limit, s.window)
		if err != nil {
			// хранилище лимитов недоступно: не блокируем пациента
			s.logger.Warn().Err(err).Str("client", client).Msg("contact rate limit check failed")
		} else if !allowed {
			metrics.IncContact("rate_limited")
			return ErrRateLimited
		}
	}

	if err := s.repo.CreateContactMessage(ctx, m); err != nil {
		metrics.IncContact("error")
		return err
	}
	metrics.IncContact("stored")

	s.logger.Info().Int64("message_id", m.ID).Str("subject", m.Subject).Msg("contact message received")
	if s.eventBus != nil {
		payload := events.ContactEventPayload{MessageID: m.ID, Name: m.Name, Email: m.Email, Subject: m.Subject}
		if err := s.eventBus.PublishJSON(events.EventContactReceived, payload); err != nil {
			s.logger.Error().Err(err).Int64("message_id", m.ID).Msg("publish event error")
		}
	}
	return nil
}

func (s *ContactService) List(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	return s.repo.GetContactMessages(ctx, limit)
}

func validateContact(m *models.ContactMessage) error {
	if m == nil {
		return invalid("Please fill in the form.")
	}
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Phone = strings.TrimSpace(m.Phone)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Message = strings.TrimSpace(m.Message)

	switch {
	case m.Name == "":
		return invalid("Please enter your name.")
	case m.Email == "":
		return invalid("Please enter your email.")
	case m.Message == "":
		return invalid("Please enter a message.")
	case len(m.Message) > maxContactMessageLen:
		return invalid("Your message is too long.")
	}
	if addr, err := mail.ParseAddress(m.Email); err != nil || addr.Address != m.Email {
		return invalid("Please enter a valid email address.")
	}
	return nil
}
