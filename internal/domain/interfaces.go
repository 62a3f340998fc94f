package domain

import (
	"context"
	"time"

	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Repository interface {
	LoadCatalog(ctx context.Context) (*models.Catalog, error)
	GetDoctor(ctx context.Context, id int64) (*models.Doctor, error)

	CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error
	GetAppointment(ctx context.Context, id int64) (*models.Appointment, error)
	GetTakenSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error)
	GetAppointmentsByContact(ctx context.Context, email, phone string) ([]*models.Appointment, error)
	GetAppointmentsByDateRange(ctx context.Context, start, end time.Time) ([]*models.Appointment, error)
	UpdateAppointmentStatusWithVersion(ctx context.Context, id, version int64, status string) error

	CreateDiagnosticBooking(ctx context.Context, b *models.DiagnosticBooking) error
	GetDiagnosticBookingsByEmail(ctx context.Context, email string) ([]*models.DiagnosticBooking, error)

	CreateContactMessage(ctx context.Context, m *models.ContactMessage) error
	GetContactMessages(ctx context.Context, limit int) ([]models.ContactMessage, error)
}

// SessionRepository хранит незавершённые сессии мастеров записи.
type SessionRepository interface {
	GetSession(ctx context.Context, id string) (*models.WizardSession, error)
	SaveSession(ctx context.Context, s *models.WizardSession) error
	DeleteSession(ctx context.Context, id string) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload any) error
}

type PaymentGateway interface {
	Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error)
}

type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

type SheetsWriter interface {
	UpsertAppointment(ctx context.Context, a *models.Appointment) error
	UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status string) error
}

type SyncWorker interface {
	EnqueueTask(ctx context.Context, taskType string, appointmentID int64, a *models.Appointment, status string) error
}
