package service

import (
	"context"
	"io"
	"time"

	"medcenter/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2026, 3, 10, 15, 0, 0, 0, time.Local)

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Catalog), args.Error(1)
}
func (m *mockRepo) GetDoctor(ctx context.Context, id int64) (*models.Doctor, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Doctor), args.Error(1)
}
func (m *mockRepo) CreateAppointmentWithLock(ctx context.Context, a *models.Appointment) error {
	return m.Called(ctx, a).Error(0)
}
func (m *mockRepo) GetAppointment(ctx context.Context, id int64) (*models.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Appointment), args.Error(1)
}
func (m *mockRepo) GetTakenSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	args := m.Called(ctx, doctorID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}
func (m *mockRepo) GetAppointmentsByContact(ctx context.Context, email, phone string) ([]*models.Appointment, error) {
	args := m.Called(ctx, email, phone)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}
func (m *mockRepo) GetAppointmentsByDateRange(ctx context.Context, s, e time.Time) ([]*models.Appointment, error) {
	args := m.Called(ctx, s, e)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Appointment), args.Error(1)
}
func (m *mockRepo) UpdateAppointmentStatusWithVersion(ctx context.Context, id, v int64, s string) error {
	return m.Called(ctx, id, v, s).Error(0)
}
func (m *mockRepo) CreateDiagnosticBooking(ctx context.Context, b *models.DiagnosticBooking) error {
	return m.Called(ctx, b).Error(0)
}
func (m *mockRepo) GetDiagnosticBookingsByEmail(ctx context.Context, email string) ([]*models.DiagnosticBooking, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.DiagnosticBooking), args.Error(1)
}
func (m *mockRepo) CreateContactMessage(ctx context.Context, msg *models.ContactMessage) error {
	return m.Called(ctx, msg).Error(0)
}
func (m *mockRepo) GetContactMessages(ctx context.Context, limit int) ([]models.ContactMessage, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ContactMessage), args.Error(1)
}

type mockEventBus struct {
	mock.Mock
}

func (m *mockEventBus) PublishJSON(t string, p any) error {
	return m.Called(t, p).Error(0)
}

type mockSheetsWorker struct {
	mock.Mock
}

func (m *mockSheetsWorker) EnqueueTask(ctx context.Context, tt string, id int64, a *models.Appointment, s string) error {
	return m.Called(ctx, tt, id, a, s).Error(0)
}

type mockPayments struct {
	mock.Mock
}

func (m *mockPayments) Charge(ctx context.Context, req models.PaymentRequest) (*models.PaymentResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.PaymentResult), args.Error(1)
}

type mockSessions struct {
	mock.Mock
}

func (m *mockSessions) GetSession(ctx context.Context, id string) (*models.WizardSession, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.WizardSession), args.Error(1)
}
func (m *mockSessions) SaveSession(ctx context.Context, s *models.WizardSession) error {
	return m.Called(ctx, s).Error(0)
}
func (m *mockSessions) DeleteSession(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}
func (m *mockSessions) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	args := m.Called(ctx, key, limit, window)
	return args.Bool(0), args.Error(1)
}

type mockTelegramSender struct {
	mock.Mock
}

func (m *mockTelegramSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}
func (m *mockTelegramSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}
func (m *mockTelegramSender) GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	args := m.Called(config)
	return args.Get(0).(tgbotapi.UpdatesChannel)
}
func (m *mockTelegramSender) StopReceivingUpdates() {
	m.Called()
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Departments: []models.Department{
			{ID: 1, Slug: "cardiology", Name: "Cardiology"},
			{ID: 2, Slug: "neurology", Name: "Neurology"},
		},
		Doctors: []models.Doctor{
			{ID: 10, Name: "Dr. Meera Nair", Specialty: "Cardiologist", DepartmentSlug: "cardiology", IsActive: true},
			{ID: 11, Name: "Dr. Arjun Rao", Specialty: "Neurologist", DepartmentSlug: "neurology", IsActive: true},
		},
		Tests: []models.DiagnosticTest{
			{ID: 1, Code: "CBC", Name: "Complete Blood Count", Category: "Blood", Price: 350, IsActive: true},
			{ID: 2, Code: "LIPID", Name: "Lipid Profile", Category: "Heart", Price: 600, IsActive: true},
		},
		Packages: []models.DiagnosticPackage{
			{ID: 5, Name: "Heart Check", Category: "Packages", Price: 1500, TestCodes: []string{"CBC", "LIPID"}, IsActive: true},
		},
		FirstAid: []models.FirstAidEntry{
			{ID: 1, Title: "Burns", Category: "Skin", Summary: "Cool the burn under running water"},
			{ID: 2, Title: "Choking", Category: "Airway", Summary: "Back blows and abdominal thrusts", Emergency: true},
		},
	}
}
