package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medcenter/internal/export"
	"medcenter/internal/models"

	"github.com/go-chi/chi/v5"
)

const maxRangeDays = 92

type statusRequest struct {
	Status  string `json:"status"`
	Version int64  `json:"version"`
}

// parseRange reads ?from=&to= (YYYY-MM-DD). Defaults to the coming week.
func parseRange(r *http.Request) (time.Time, time.Time, error) {
	q := r.URL.Query()
	today := time.Now().In(time.Local)
	start := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 6)

	if v := strings.TrimSpace(q.Get("from")); v != "" {
		d, err := time.ParseInLocation(models.DateLayout, v, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from date: %s", v)
		}
		start = d
		end = start.AddDate(0, 0, 6)
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		d, err := time.ParseInLocation(models.DateLayout, v, time.Local)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to date: %s", v)
		}
		end = d
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("to must not be before from")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, fmt.Errorf("range is limited to %d days", maxRangeDays)
	}
	return start, end, nil
}

func (s *HTTPServer) handleStaffAppointments(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.svc.Appointments.ListByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

func (s *HTTPServer) handleStaffStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	updated, err := s.svc.Appointments.UpdateStatus(r.Context(), id, req.Version, req.Status, ClientName(r.Context()))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *HTTPServer) handleStaffExport(w http.ResponseWriter, r *http.Request) {
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.svc.Appointments.ListByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	doctors, err := s.svc.Catalog.Doctors(r.Context(), "", models.CategoryAll)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(start, end)))
	if err := export.Write(w, start, end, doctors, list); err != nil {
		// заголовки уже отправлены, остаётся только залогировать
		s.log.Error().Err(err).Msg("export failed")
	}
}

func (s *HTTPServer) handleStaffContact(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	messages, err := s.svc.Contact.List(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

// handleStaffResync queues an upsert of every appointment in range to the
// front-desk sheet.
func (s *HTTPServer) handleStaffResync(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sync == nil {
		writeError(w, http.StatusServiceUnavailable, "sheets sync is not configured")
		return
	}
	start, end, err := parseRange(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	list, err := s.svc.Appointments.ListByDateRange(r.Context(), start, end)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	queued := 0
	for _, a := range list {
		if err := s.svc.Sync.EnqueueTask(r.Context(), models.SyncTaskUpsert, a.ID, a, ""); err != nil {
			s.log.Error().Err(err).Int64("appointment_id", a.ID).Msg("resync enqueue failed")
			continue
		}
		queued++
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued, "total": len(list)})
}
