package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"medcenter/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCachedClient(t *testing.T, baseURL string) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	c := NewClient(baseURL, botKey)
	c.UseRedisCache(rdb, time.Minute)
	return c, mr
}

func TestClientCatalogReads(t *testing.T) {
	env := newTestEnv(t)
	c, mr := newCachedClient(t, env.ts.URL+"/")
	ctx := context.Background()

	doctors, err := c.Doctors(ctx, "", "cardiology")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Dr. Meera Nair", doctors[0].Name)

	key := cacheKeyPrefix + "/api/v1/doctors?department=cardiology"
	require.True(t, mr.Exists(key))
	assert.InDelta(t, time.Minute.Seconds(), mr.TTL(key).Seconds(), 1)

	// второй вызов читается из кэша
	require.NoError(t, mr.Set(key, `{"doctors":[{"id":99,"name":"Cached"}]}`))
	doctors, err = c.Doctors(ctx, "", "cardiology")
	require.NoError(t, err)
	require.Len(t, doctors, 1)
	assert.Equal(t, "Cached", doctors[0].Name)

	tests, err := c.Tests(ctx, "blood", "")
	require.NoError(t, err)
	require.Len(t, tests, 1)
	assert.Equal(t, "CBC", tests[0].Code)

	packages, err := c.Packages(ctx, "", "Cardiac")
	require.NoError(t, err)
	assert.Len(t, packages, 1)

	entries, err := c.FirstAid(ctx, "choking", "")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Emergency)
}

func TestClientSlotsAreNotCached(t *testing.T) {
	env := newTestEnv(t)
	c, mr := newCachedClient(t, env.ts.URL)
	ctx := context.Background()
	day := time.Now().AddDate(0, 0, 2)

	slots, err := c.AvailableSlots(ctx, 10, day)
	require.NoError(t, err)
	assert.Contains(t, slots, "10:00 AM")
	assert.Empty(t, mr.Keys())

	createAppointment(t, env, day.Format(models.DateLayout), "10:00 AM")
	slots, err = c.AvailableSlots(ctx, 10, day)
	require.NoError(t, err)
	assert.NotContains(t, slots, "10:00 AM")

	_, err = c.AvailableSlots(ctx, 404, day)
	var httpErr *HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadRequest, httpErr.StatusCode)
	assert.Equal(t, "The selected doctor is not available.", httpErr.Message)
}

func TestClientCreators(t *testing.T) {
	env := newTestEnv(t)
	c := NewClient(env.ts.URL, botKey)
	ctx := context.Background()

	req := models.AppointmentRequest{
		ServiceType:     "consultation",
		DoctorID:        10,
		AppointmentDate: futureDate(4),
		TimeSlot:        "02:00 PM",
		PatientName:     "Kiran",
		Phone:           "98450",
		City:            "Mysuru",
		Reason:          "headache",
	}

	res, err := c.AppointmentCreator().Create(ctx, req)
	require.NoError(t, err)
	assert.True(t, res.OK())
	assert.True(t, res.Success)
	assert.NotZero(t, res.ID)

	res, err = c.AppointmentCreator().Create(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusConflict, res.StatusCode)
	assert.False(t, res.Success)
	assert.Equal(t, "This time slot is no longer available. Please choose another time.", res.Error)

	res, err = c.DiagnosticsCreator().Create(ctx, models.DiagnosticBookingRequest{
		TestIDs:        []int64{1},
		PatientName:    "Kiran",
		Phone:          "98450",
		CollectionDate: futureDate(1),
		TimeSlot:       "09:00 AM",
		PaymentMethod:  models.PaymentMethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.NotEmpty(t, res.Reference)
}

func TestClientTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", "")
	_, err := c.AppointmentCreator().Create(context.Background(), models.AppointmentRequest{})
	assert.Error(t, err)

	_, err = c.Doctors(context.Background(), "", "")
	assert.Error(t, err)
}

func TestClientTruncatedSubmitBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Length", "200")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true,"id":5`))
	}))
	defer ts.Close()

	c := NewClient(ts.URL, botKey)
	res, err := c.AppointmentCreator().Create(context.Background(), models.AppointmentRequest{})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, res.StatusCode)
	assert.False(t, res.Success)
	assert.Zero(t, res.ID)
	assert.Empty(t, res.Error)
}
