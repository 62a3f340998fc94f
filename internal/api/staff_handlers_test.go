package api

import (
	"net/http"
	"strconv"
	"testing"

	"medcenter/internal/export"
	"medcenter/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func createAppointment(t *testing.T, env *testEnv, date, slot string) int64 {
	t.Helper()
	resp := env.do(t, http.MethodPost, "/api/v1/appointments", appointmentBody(date, slot))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.SubmitResult
	decodeBody(t, resp, &created)
	require.NotZero(t, created.ID)
	return created.ID
}

func TestStaffAuth(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/staff/appointments", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/staff/appointments", "", "x-api-key", "nope")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/staff/appointments", "", "x-api-key", botKey)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodPatch, "/api/v1/staff/appointments/1/status", `{"status":"confirmed","version":1}`,
		"x-api-key", readerKey)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/staff/appointments", "", "x-api-key", staffKey)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaffAuthDisabled(t *testing.T) {
	cfg := testAPIConfig()
	cfg.Auth.Enabled = false
	env := newTestEnvWithConfig(t, cfg)

	resp := env.do(t, http.MethodGet, "/api/v1/staff/contact", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestStaffAppointments(t *testing.T) {
	env := newTestEnv(t)
	date := futureDate(1)
	id := createAppointment(t, env, date, "10:00 AM")
	createAppointment(t, env, futureDate(20), "10:00 AM")

	t.Run("ListDefaultWeek", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/staff/appointments", "", "x-api-key", staffKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			Appointments []models.Appointment `json:"appointments"`
		}
		decodeBody(t, resp, &body)
		require.Len(t, body.Appointments, 1)
		assert.Equal(t, id, body.Appointments[0].ID)
		assert.Equal(t, "Dr. Meera Nair", body.Appointments[0].DoctorName)
	})

	t.Run("BadRange", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/staff/appointments?from=2026-01-10&to=2026-01-01", "",
			"x-api-key", staffKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/api/v1/staff/appointments?from=2026-01-01&to=2026-12-31", "",
			"x-api-key", staffKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.do(t, http.MethodGet, "/api/v1/staff/appointments?from=yesterday", "", "x-api-key", staffKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("StatusUpdate", func(t *testing.T) {
		path := "/api/v1/staff/appointments/" + strconv.FormatInt(id, 10) + "/status"
		resp := env.do(t, http.MethodPatch, path, `{"status":"confirmed","version":1}`, "x-api-key", staffKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated models.Appointment
		decodeBody(t, resp, &updated)
		assert.Equal(t, models.StatusConfirmed, updated.Status)
		assert.Equal(t, int64(2), updated.Version)

		// устаревшая версия
		resp = env.do(t, http.MethodPatch, path, `{"status":"cancelled","version":1}`, "x-api-key", staffKey)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)

		resp = env.do(t, http.MethodPatch, path, `{"status":"pending","version":2}`, "x-api-key", staffKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.do(t, http.MethodPatch, "/api/v1/staff/appointments/abc/status", `{"status":"confirmed"}`,
			"x-api-key", staffKey)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = env.do(t, http.MethodPatch, "/api/v1/staff/appointments/9999/status", `{"status":"confirmed","version":1}`,
			"x-api-key", staffKey)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		tasks := env.sync.all()
		require.NotEmpty(t, tasks)
		last := tasks[len(tasks)-1]
		assert.Equal(t, models.SyncTaskStatus, last.taskType)
		assert.Equal(t, id, last.appointmentID)
	})

	t.Run("Export", func(t *testing.T) {
		resp := env.do(t, http.MethodGet, "/api/v1/staff/appointments/export", "", "x-api-key", readerKey)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, export.ContentType, resp.Header.Get("Content-Type"))
		assert.Contains(t, resp.Header.Get("Content-Disposition"), "appointments_")

		f, err := excelize.OpenReader(resp.Body)
		require.NoError(t, err)
		defer f.Close()
		assert.Equal(t, []string{"Schedule", "Appointments"}, f.GetSheetList())

		rows, err := f.GetRows("Appointments")
		require.NoError(t, err)
		assert.Len(t, rows, 2)
	})

	t.Run("Resync", func(t *testing.T) {
		before := len(env.sync.all())
		resp := env.do(t, http.MethodPost, "/api/v1/staff/sheets/resync?from="+date+"&to="+futureDate(30), "",
			"x-api-key", staffKey)
		require.Equal(t, http.StatusAccepted, resp.StatusCode)
		var body map[string]int
		decodeBody(t, resp, &body)
		assert.Equal(t, 2, body["queued"])
		assert.Equal(t, 2, body["total"])

		tasks := env.sync.all()[before:]
		require.Len(t, tasks, 2)
		for _, task := range tasks {
			assert.Equal(t, models.SyncTaskUpsert, task.taskType)
		}
	})
}

func TestStaffContactList(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/contact",
		`{"name":"Lena","email":"lena@example.com","subject":"Parking","message":"Is there parking?"}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/api/v1/staff/contact?limit=10", "", "x-api-key", staffKey)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Messages []models.ContactMessage `json:"messages"`
	}
	decodeBody(t, resp, &body)
	require.Len(t, body.Messages, 1)
	assert.Equal(t, "Parking", body.Messages[0].Subject)

	resp = env.do(t, http.MethodGet, "/api/v1/staff/contact?limit=-1", "", "x-api-key", staffKey)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
