package bot

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"medcenter/internal/events"
	"medcenter/internal/models"
	"medcenter/internal/repository"
	"medcenter/internal/wizard"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testChat  int64 = 42
	staffChat int64 = 999
)

type mockSender struct {
	mu       sync.Mutex
	sent     []tgbotapi.Chattable
	requests []tgbotapi.Chattable
	updates  chan tgbotapi.Update
}

func (m *mockSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, c)
	return tgbotapi.Message{MessageID: len(m.sent)}, nil
}

func (m *mockSender) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (m *mockSender) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return m.updates
}

func (m *mockSender) StopReceivingUpdates() {}

// texts returns the text of every sent or edited message.
func (m *mockSender) texts() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		if t := textOf(c); t != "" {
			out = append(out, t)
		}
	}
	return out
}

func (m *mockSender) last() tgbotapi.Chattable {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

func (m *mockSender) lastText() string {
	return textOf(m.last())
}

func (m *mockSender) sentTo(chatID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, c := range m.sent {
		if msg, ok := c.(tgbotapi.MessageConfig); ok && msg.ChatID == chatID {
			out = append(out, msg.Text)
		}
	}
	return out
}

func textOf(c tgbotapi.Chattable) string {
	switch m := c.(type) {
	case tgbotapi.MessageConfig:
		return m.Text
	case tgbotapi.EditMessageTextConfig:
		return m.Text
	}
	return ""
}

type fakeCatalog struct {
	doctors  []models.Doctor
	tests    []models.DiagnosticTest
	firstAid []models.FirstAidEntry
	slots    []string
	err      error
}

func (f *fakeCatalog) Doctors(context.Context, string, string) ([]models.Doctor, error) {
	return f.doctors, f.err
}

func (f *fakeCatalog) Tests(context.Context, string, string) ([]models.DiagnosticTest, error) {
	return f.tests, f.err
}

func (f *fakeCatalog) FirstAid(context.Context, string, string) ([]models.FirstAidEntry, error) {
	return f.firstAid, f.err
}

func (f *fakeCatalog) AvailableSlots(context.Context, int64, time.Time) ([]string, error) {
	return f.slots, f.err
}

type creatorRecorder struct {
	mu       sync.Mutex
	requests []models.AppointmentRequest
	result   *models.SubmitResult
}

func (c *creatorRecorder) Create(_ context.Context, req models.AppointmentRequest) (*models.SubmitResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	return c.result, nil
}

type testEnv struct {
	bot      *Bot
	sender   *mockSender
	catalog  *fakeCatalog
	creator  *creatorRecorder
	sessions *repository.MemorySessionRepository
	metrics  *Metrics
}

func testRules() wizard.Rules {
	return wizard.Rules{
		Now: func() time.Time { return time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC) },
	}
}

func newTestEnv(t *testing.T, opts Options) *testEnv {
	t.Helper()

	env := &testEnv{
		sender: &mockSender{updates: make(chan tgbotapi.Update, 8)},
		catalog: &fakeCatalog{
			doctors: []models.Doctor{
				{ID: 10, Name: "Dr. Meera Nair", Specialty: "Cardiology", DepartmentSlug: "cardiology"},
				{ID: 11, Name: "Dr. Arjun Rao", Specialty: "Neurology", DepartmentSlug: "neurology"},
			},
			tests: []models.DiagnosticTest{
				{ID: 1, Code: "CBC", Name: "Complete Blood Count", Price: 350},
				{ID: 2, Code: "FBS", Name: "Fasting Blood Sugar", Price: 120, FastingRequired: true},
			},
			firstAid: []models.FirstAidEntry{
				{ID: 1, Title: "Burns", Summary: "Cool the burn.", Steps: []string{"Run cool water for 20 minutes"}},
				{ID: 2, Title: "Choking", Summary: "Back blows.", Emergency: true},
			},
			slots: []string{"09:00 AM", "09:30 AM"},
		},
		creator: &creatorRecorder{
			result: &models.SubmitResult{StatusCode: 201, Success: true, ID: 77},
		},
		sessions: repository.NewMemorySessionRepository(time.Hour),
		metrics:  NewMetrics(prometheus.NewRegistry()),
	}

	logger := zerolog.New(io.Discard)
	b, err := NewBot(env.sender, env.catalog, env.creator, env.sessions, testRules(), events.NewEventBus(), opts, env.metrics, &logger)
	require.NoError(t, err)
	env.bot = b
	return env
}

func (e *testEnv) message(text string) {
	e.bot.processUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: testChat, FirstName: "Asha", LastName: "Rao"},
			Chat: &tgbotapi.Chat{ID: testChat},
			Text: text,
		},
	})
}

func (e *testEnv) contact(phone string) {
	e.bot.processUpdate(context.Background(), tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:    &tgbotapi.User{ID: testChat, FirstName: "Asha"},
			Chat:    &tgbotapi.Chat{ID: testChat},
			Contact: &tgbotapi.Contact{PhoneNumber: phone},
		},
	})
}

func (e *testEnv) press(data string) {
	e.bot.processUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:   "cb-" + data,
			From: &tgbotapi.User{ID: testChat},
			Message: &tgbotapi.Message{
				MessageID: 5,
				Chat:      &tgbotapi.Chat{ID: testChat},
			},
			Data: data,
		},
	})
}

func (e *testEnv) session(t *testing.T) *models.WizardSession {
	t.Helper()
	sess, err := e.sessions.GetSession(context.Background(), sessionID(testChat))
	require.NoError(t, err)
	return sess
}

func TestNewBot_RequiresDependencies(t *testing.T) {
	_, err := NewBot(nil, &fakeCatalog{}, &creatorRecorder{}, repository.NewMemorySessionRepository(0), wizard.Rules{}, nil, Options{}, nil, nil)
	assert.Error(t, err)

	b, err := NewBot(&mockSender{}, &fakeCatalog{}, &creatorRecorder{}, repository.NewMemorySessionRepository(0), wizard.Rules{}, nil, Options{}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultMaxBookingDays, b.opts.MaxBookingDays)
	assert.Equal(t, models.DefaultListingRoute, b.opts.ListingRoute)
}

func TestBotStart(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.sender.updates <- tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: testChat, UserName: "asha"},
			Chat: &tgbotapi.Chat{ID: testChat},
			Text: "/start",
		},
	}
	close(env.sender.updates)

	env.bot.Start(context.Background())

	require.NotEmpty(t, env.sender.texts())
	assert.Contains(t, env.sender.lastText(), "/book")
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.UpdatesProcessed.WithLabelValues("message")))
}

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		in      string
		command string
		arg     string
	}{
		{"/book", "book", ""},
		{"/FirstAid@clinic_bot  burns ", "firstaid", "burns"},
		{"/tests blood sugar", "tests", "blood sugar"},
		{"Pune", "", "Pune"},
		{"", "", ""},
	}
	for _, tt := range tests {
		command, arg := splitCommand(tt.in)
		assert.Equal(t, tt.command, command, tt.in)
		assert.Equal(t, tt.arg, arg, tt.in)
	}
}

func TestLookups(t *testing.T) {
	env := newTestEnv(t, Options{})

	env.message("/firstaid")
	assert.Contains(t, env.sender.lastText(), "Usage: /firstaid")

	env.message("/firstaid choking")
	text := env.sender.lastText()
	assert.Contains(t, text, "Burns")
	assert.Contains(t, text, "1. Run cool water for 20 minutes")
	assert.Contains(t, text, "🚨 Choking")

	env.message("/tests blood")
	text = env.sender.lastText()
	assert.Contains(t, text, "Complete Blood Count (CBC): 350.00")
	assert.Contains(t, text, "Fasting Blood Sugar (FBS): 120.00, fasting required")

	env.catalog.tests = nil
	env.message("/tests xray")
	assert.Equal(t, `No tests found for "xray".`, env.sender.lastText())

	env.message("/unknown")
	assert.Contains(t, env.sender.lastText(), "Unknown command.")
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, Options{RateLimitMessages: 2, RateLimitWindow: time.Minute})

	env.message("/help")
	env.message("/help")
	env.message("/help")

	assert.Equal(t, msgSlowDown, env.sender.lastText())
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.RateLimited))
}

func TestWithRecovery(t *testing.T) {
	env := newTestEnv(t, Options{})

	assert.NotPanics(t, func() {
		env.bot.withRecovery(func() { panic("boom") })
	})
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.ErrorsTotal))
}

func TestNotifyStaff(t *testing.T) {
	env := newTestEnv(t, Options{StaffChatID: staffChat})

	err := env.bot.eventBus.PublishJSON(events.EventBookingCreated, events.AppointmentEventPayload{
		AppointmentID: 5,
		ServiceType:   models.ServiceConsultation,
		DoctorName:    "Dr. Meera Nair",
		Date:          time.Date(2026, 3, 3, 0, 0, 0, 0, time.UTC),
		TimeSlot:      "09:00 AM",
		PatientName:   "Asha Rao",
		Phone:         "+919876543210",
		Status:        models.StatusPending,
	})
	require.NoError(t, err)

	sent := env.sender.sentTo(staffChat)
	require.Len(t, sent, 1)
	assert.Contains(t, sent[0], "🩺 Appointment #5 (pending)")
	assert.Contains(t, sent[0], "When: 2026-03-03, 09:00 AM")
}

func TestNotifyStaff_BadPayload(t *testing.T) {
	env := newTestEnv(t, Options{StaffChatID: staffChat})

	err := env.bot.notifyStaff(&events.Event{Type: events.EventBookingCreated, Payload: []byte("{")})
	assert.Error(t, err)
	assert.Empty(t, env.sender.sentTo(staffChat))
}
