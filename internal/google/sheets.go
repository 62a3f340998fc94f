// Package google keeps the front-desk appointment sheet in step with the
// database.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"medcenter/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	sheetName     = "Appointments"
	lastColumn    = "L"
	statusColumn  = "J"
	updatedColumn = "L"
	timestamp     = "2006-01-02 15:04:05"
)

var ErrRowNotFound = errors.New("appointment row not found")

var header = []interface{}{
	"ID", "Date", "Time", "Doctor", "Service", "Patient", "Phone", "City", "Reason", "Status", "Created At", "Updated At",
}

// SheetsService writes one row per appointment, keyed by the ID in column A.
// Row numbers are cached; the cache is rebuilt by WarmUpCache.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	logger        *zerolog.Logger

	cacheMu  sync.RWMutex
	rowCache map[int64]int
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, spreadsheetID, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *SheetsService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		logger:        logger,
		rowCache:      make(map[int64]int),
	}
}

// TestConnection reads the header cell.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// RefreshCacheEvery warms the row cache now and then on every tick until ctx
// is done.
func (s *SheetsService) RefreshCacheEvery(ctx context.Context, interval time.Duration) {
	refresh := func() {
		c, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(c); err != nil && ctx.Err() == nil {
			s.logger.Warn().Err(err).Msg("sheet row cache refresh failed")
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// WarmUpCache rebuilds the row cache from column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	cache := make(map[int64]int, len(resp.Values))
	for i, row := range resp.Values {
		if id := cellID(row); id > 0 {
			cache[id] = i + 1
		}
	}

	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func (s *SheetsService) AppendAppointment(ctx context.Context, a *models.Appointment) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, sheetName+"!A:A", &sheets.ValueRange{
		Values: [][]interface{}{rowValues(a)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if row := rowFromRange(resp.Updates.UpdatedRange); row > 0 {
			s.setCachedRow(a.ID, row)
		}
	}
	return nil
}

// UpsertAppointment rewrites the appointment's row or appends one.
func (s *SheetsService) UpsertAppointment(ctx context.Context, a *models.Appointment) error {
	if a == nil {
		return errors.New("appointment is nil")
	}

	row, err := s.FindAppointmentRow(ctx, a.ID)
	if errors.Is(err, ErrRowNotFound) {
		return s.AppendAppointment(ctx, a)
	}
	if err != nil {
		return err
	}

	rng := fmt.Sprintf("%s!A%d:%s%d", sheetName, row, lastColumn, row)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rng, &sheets.ValueRange{
		Values: [][]interface{}{rowValues(a)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// UpdateAppointmentStatus sets the status and updated-at cells in one call.
func (s *SheetsService) UpdateAppointmentStatus(ctx context.Context, appointmentID int64, status string) error {
	row, err := s.FindAppointmentRow(ctx, appointmentID)
	if err != nil {
		return err
	}

	req := &sheets.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data: []*sheets.ValueRange{
			{
				Range:  fmt.Sprintf("%s!%s%d", sheetName, statusColumn, row),
				Values: [][]interface{}{{status}},
			},
			{
				Range:  fmt.Sprintf("%s!%s%d", sheetName, updatedColumn, row),
				Values: [][]interface{}{{time.Now().Format(timestamp)}},
			},
		},
	}
	_, err = s.service.Spreadsheets.Values.BatchUpdate(s.spreadsheetID, req).Context(ctx).Do()
	return err
}

// FindAppointmentRow returns the 1-based row holding appointmentID.
func (s *SheetsService) FindAppointmentRow(ctx context.Context, appointmentID int64) (int, error) {
	if appointmentID == 0 {
		return 0, errors.New("appointment id is required")
	}
	if row, ok := s.getCachedRow(appointmentID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, sheetName+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if cellID(row) == appointmentID {
			s.setCachedRow(appointmentID, i+1)
			return i + 1, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceAll rewrites the whole sheet, header included.
func (s *SheetsService) ReplaceAll(ctx context.Context, list []*models.Appointment) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, sheetName+"!A:"+lastColumn, &sheets.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear appointments sheet: %w", err)
	}

	values := make([][]interface{}, 0, len(list)+1)
	values = append(values, header)
	for _, a := range list {
		values = append(values, rowValues(a))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, sheetName+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to write appointments sheet: %w", err)
	}

	cache := make(map[int64]int, len(list))
	for i, a := range list {
		cache[a.ID] = i + 2
	}
	s.cacheMu.Lock()
	s.rowCache = cache
	s.cacheMu.Unlock()
	return nil
}

func rowValues(a *models.Appointment) []interface{} {
	return []interface{}{
		a.ID,
		a.Date.Format(models.DateLayout),
		a.TimeSlot,
		a.DoctorName,
		a.ServiceType,
		a.PatientName,
		a.Phone,
		a.City,
		a.Reason,
		a.Status,
		a.CreatedAt.Format(timestamp),
		a.UpdatedAt.Format(timestamp),
	}
}

func cellID(row []interface{}) int64 {
	if len(row) == 0 {
		return 0
	}
	switch v := row[0].(type) {
	case float64:
		return int64(v)
	case string:
		id, _ := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		return id
	}
	return 0
}

// rowFromRange extracts the first row number of a range like "Sheet!A10:L10".
func rowFromRange(rng string) int {
	if i := strings.LastIndex(rng, "!"); i >= 0 {
		rng = rng[i+1:]
	}
	if i := strings.Index(rng, ":"); i >= 0 {
		rng = rng[:i]
	}
	digits := strings.TrimLeft(rng, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return row
}

func (s *SheetsService) getCachedRow(id int64) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id int64, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

// ClearCache drops all cached row numbers.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[int64]int)
}
