package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medcenter/internal/models"
	"medcenter/internal/wizard"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "medcenter:catalog:"

// Client calls the REST API on behalf of the Telegram bot.
type Client struct {
	baseURL    string
	apiKey     string
	keyHeader  string
	httpClient *http.Client

	redis    *redis.Client
	cacheTTL time.Duration
}

// HTTPError is a non-2xx reply to a read request.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.StatusCode)
	}
	return fmt.Sprintf("http %d: %s", e.StatusCode, e.Message)
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		keyHeader:  apiKeyHeaderDefault,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// UseRedisCache enables caching of catalog reads.
func (c *Client) UseRedisCache(redisClient *redis.Client, ttl time.Duration) {
	c.redis = redisClient
	c.cacheTTL = ttl
}

func (c *Client) Doctors(ctx context.Context, query, department string) ([]models.Doctor, error) {
	var wrap struct {
		Doctors []models.Doctor `json:"doctors"`
	}
	err := c.cachedGet(ctx, "/api/v1/doctors", url.Values{"q": {query}, "department": {department}}, &wrap)
	return wrap.Doctors, err
}

func (c *Client) Tests(ctx context.Context, query, category string) ([]models.DiagnosticTest, error) {
	var wrap struct {
		Tests []models.DiagnosticTest `json:"tests"`
	}
	err := c.cachedGet(ctx, "/api/v1/diagnostics/tests", url.Values{"q": {query}, "category": {category}}, &wrap)
	return wrap.Tests, err
}

func (c *Client) Packages(ctx context.Context, query, category string) ([]models.DiagnosticPackage, error) {
	var wrap struct {
		Packages []models.DiagnosticPackage `json:"packages"`
	}
	err := c.cachedGet(ctx, "/api/v1/diagnostics/packages", url.Values{"q": {query}, "category": {category}}, &wrap)
	return wrap.Packages, err
}

func (c *Client) FirstAid(ctx context.Context, query, category string) ([]models.FirstAidEntry, error) {
	var wrap struct {
		FirstAid []models.FirstAidEntry `json:"first_aid"`
	}
	err := c.cachedGet(ctx, "/api/v1/first-aid", url.Values{"q": {query}, "category": {category}}, &wrap)
	return wrap.FirstAid, err
}

// AvailableSlots is never cached: slots change with every booking.
func (c *Client) AvailableSlots(ctx context.Context, doctorID int64, date time.Time) ([]string, error) {
	var wrap struct {
		Slots []string `json:"slots"`
	}
	endpoint := c.endpoint("/api/v1/doctors/"+strconv.FormatInt(doctorID, 10)+"/slots",
		url.Values{"date": {date.Format(models.DateLayout)}})
	if err := c.doGet(ctx, endpoint, &wrap); err != nil {
		return nil, err
	}
	return wrap.Slots, nil
}

// AppointmentCreator posts appointment requests for a submission gate.
func (c *Client) AppointmentCreator() wizard.Creator[models.AppointmentRequest] {
	return wizard.CreatorFunc[models.AppointmentRequest](func(ctx context.Context, req models.AppointmentRequest) (*models.SubmitResult, error) {
		return c.submit(ctx, "/api/v1/appointments", req)
	})
}

func (c *Client) DiagnosticsCreator() wizard.Creator[models.DiagnosticBookingRequest] {
	return wizard.CreatorFunc[models.DiagnosticBookingRequest](func(ctx context.Context, req models.DiagnosticBookingRequest) (*models.SubmitResult, error) {
		return c.submit(ctx, "/api/v1/diagnostics/bookings", req)
	})
}

// submit returns an error only when no HTTP response arrived. Any response,
// whatever its status, is reported through the result.
func (c *Client) submit(ctx context.Context, path string, body any) (*models.SubmitResult, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		// Тело оборвалось: ответа нет, только статус.
		return &models.SubmitResult{StatusCode: resp.StatusCode}, nil
	}

	var res models.SubmitResult
	if err := json.Unmarshal(raw, &res); err != nil {
		res = models.SubmitResult{}
	}
	res.StatusCode = resp.StatusCode
	return &res, nil
}

func (c *Client) endpoint(path string, query url.Values) string {
	for k, v := range query {
		if len(v) == 0 || v[0] == "" {
			query.Del(k)
		}
	}
	if len(query) == 0 {
		return c.baseURL + path
	}
	return c.baseURL + path + "?" + query.Encode()
}

func (c *Client) cachedGet(ctx context.Context, path string, query url.Values, out any) error {
	endpoint := c.endpoint(path, query)
	cacheKey := cacheKeyPrefix + strings.TrimPrefix(endpoint, c.baseURL)

	if c.readCache(ctx, cacheKey, out) {
		return nil
	}
	if err := c.doGet(ctx, endpoint, out); err != nil {
		return err
	}
	c.writeCache(ctx, cacheKey, out)
	return nil
}

func (c *Client) readCache(ctx context.Context, key string, out any) bool {
	if c.redis == nil || c.cacheTTL <= 0 {
		return false
	}
	val, err := c.redis.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(val, out) == nil
}

func (c *Client) writeCache(ctx context.Context, key string, val any) {
	if c.redis == nil || c.cacheTTL <= 0 {
		return
	}
	data, err := json.Marshal(val)
	if err != nil {
		return
	}
	_ = c.redis.Set(ctx, key, data, c.cacheTTL).Err()
}

func (c *Client) doGet(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	c.addHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body)
		return &HTTPError{StatusCode: resp.StatusCode, Message: body.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) addHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(c.keyHeader, c.apiKey)
	}
}
