package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"medcenter/internal/config"
	"medcenter/internal/database"
	"medcenter/internal/models"
	"medcenter/internal/pages"
	"medcenter/internal/payment"
	"medcenter/internal/repository"
	"medcenter/internal/service"
	"medcenter/internal/wizard"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	staffKey  = "staff-key"
	botKey    = "bot-key"
	readerKey = "reader-key"
)

type recordedTask struct {
	taskType      string
	appointmentID int64
}

type recordingSync struct {
	mu    sync.Mutex
	tasks []recordedTask
}

func (r *recordingSync) EnqueueTask(_ context.Context, taskType string, id int64, _ *models.Appointment, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, recordedTask{taskType: taskType, appointmentID: id})
	return nil
}

func (r *recordingSync) all() []recordedTask {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recordedTask(nil), r.tasks...)
}

type testEnv struct {
	ts     *httptest.Server
	db     *database.DB
	svc    Services
	sync   *recordingSync
	server *HTTPServer
}

func testAPIConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true},
		Auth: config.APIAuthConfig{
			Enabled:      true,
			HeaderAPIKey: "x-api-key",
			APIKeys: []config.APIClientKey{
				{Key: staffKey, Name: "front-desk"},
				{Key: botKey, Name: "telegram-bot", Permissions: []string{permReadCatalog}},
				{Key: readerKey, Name: "reports", Permissions: []string{permStaffExport}},
			},
		},
		RateLimit: config.APIRateLimitConfig{RPS: 1000, Burst: 1000, BookingsPerMinute: 1000},
		CORS:      config.APICORSConfig{AllowedOrigins: []string{"*"}},
	}
}

func testCatalog() *models.Catalog {
	return &models.Catalog{
		Departments: []models.Department{
			{ID: 1, Slug: "cardiology", Name: "Cardiology", SortOrder: 1},
			{ID: 2, Slug: "neurology", Name: "Neurology", SortOrder: 2},
		},
		Doctors: []models.Doctor{
			{ID: 10, Name: "Dr. Meera Nair", Specialty: "Cardiologist", DepartmentSlug: "cardiology", IsActive: true},
			{ID: 11, Name: "Dr. Arjun Rao", Specialty: "Neurologist", DepartmentSlug: "neurology", IsActive: true},
		},
		Tests: []models.DiagnosticTest{
			{ID: 1, Code: "CBC", Name: "Complete Blood Count", Category: "Blood", Price: 350, IsActive: true},
			{ID: 2, Code: "ECG", Name: "Electrocardiogram", Category: "Cardiac", Price: 600, IsActive: true},
		},
		Packages: []models.DiagnosticPackage{
			{ID: 5, Name: "Heart Check", Category: "Cardiac", Price: 1500, TestCodes: []string{"CBC", "ECG"}, IsActive: true},
		},
		FirstAid: []models.FirstAidEntry{
			{ID: 1, Title: "Burns", Category: "Skin", Summary: "Cool the burn under running water"},
			{ID: 2, Title: "Choking", Category: "Airway", Summary: "Back blows and abdominal thrusts", Emergency: true},
		},
	}
}

const testPages = `
pages:
  - slug: cardiology
    department: cardiology
    hero:
      title: Heart care
    stats:
      - label: Surgeons
        value: "12"
`

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithConfig(t, testAPIConfig())
}

func newTestEnvWithConfig(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, db.ImportCatalog(ctx, testCatalog()))

	registry, err := pages.Parse([]byte(testPages))
	require.NoError(t, err)

	rules := wizard.Rules{}
	sessions := repository.NewMemorySessionRepository(time.Hour)
	syncer := &recordingSync{}

	catalog := service.NewCatalogService(db, nil, &logger)
	appointments := service.NewAppointmentService(db, nil, syncer, rules, 30, &logger)
	payments := payment.NewGateway(config.PaymentsConfig{
		Methods:       []string{models.PaymentMethodCard, models.PaymentMethodUPI, models.PaymentMethodCash},
		DeclineSuffix: "0000",
	})
	diagnostics := service.NewDiagnosticsService(db, catalog, payments, nil, rules, 30, &logger)
	contact := service.NewContactService(db, sessions, nil, 2, time.Minute, &logger)
	wizards := service.NewWizardService(sessions, catalog, rules, appointments.Creator(), diagnostics.Creator(), "/appointments", &logger)

	svc := Services{
		Catalog:      catalog,
		Appointments: appointments,
		Diagnostics:  diagnostics,
		Contact:      contact,
		Wizards:      wizards,
		Pages:        registry,
		Sync:         syncer,
	}
	server := NewHTTPServer(cfg, svc, &logger)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{ts: ts, db: db, svc: svc, sync: syncer, server: server}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.ts.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func futureDate(days int) string {
	return time.Now().AddDate(0, 0, days).Format(models.DateLayout)
}
