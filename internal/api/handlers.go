package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"medcenter/internal/models"
	"medcenter/internal/pages"
	"medcenter/internal/service"

	"github.com/go-chi/chi/v5"
)

func (s *HTTPServer) handleDepartments(w http.ResponseWriter, r *http.Request) {
	departments, err := s.svc.Catalog.Departments(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"departments": departments})
}

// handleDepartmentPage returns the page config of a department together with
// its doctors.
func (s *HTTPServer) handleDepartmentPage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	if s.svc.Pages == nil {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	page, err := s.svc.Pages.Get(slug)
	if errors.Is(err, pages.ErrPageNotFound) {
		writeError(w, http.StatusNotFound, "page not found")
		return
	}
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	department := page.Department
	if department == "" {
		department = page.Slug
	}
	doctors, err := s.svc.Catalog.Doctors(r.Context(), "", department)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"page": page, "doctors": doctors})
}

func (s *HTTPServer) handleDoctors(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	doctors, err := s.svc.Catalog.Doctors(r.Context(), q.Get("q"), q.Get("department"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctors": doctors})
}

func (s *HTTPServer) handleSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || doctorID <= 0 {
		writeError(w, http.StatusBadRequest, "invalid doctor id")
		return
	}
	dateStr := strings.TrimSpace(r.URL.Query().Get("date"))
	date, err := time.ParseInLocation(models.DateLayout, dateStr, time.Local)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format; expected YYYY-MM-DD")
		return
	}

	slots, err := s.svc.Catalog.AvailableSlots(r.Context(), doctorID, date)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doctor_id": doctorID, "date": dateStr, "slots": slots})
}

func (s *HTTPServer) handleTests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tests, err := s.svc.Catalog.Tests(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tests": tests})
}

func (s *HTTPServer) handlePackages(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	packages, err := s.svc.Catalog.Packages(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"packages": packages})
}

func (s *HTTPServer) handleTestCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.svc.Catalog.TestCategories(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (s *HTTPServer) handleFirstAid(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	entries, err := s.svc.Catalog.FirstAid(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"first_aid": entries})
}

// handleCreateAppointment answers with the {success, error?, id?} contract
// the wizard's submission gate expects.
func (s *HTTPServer) handleCreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req models.AppointmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SubmitResult{Error: "Invalid request body."})
		return
	}
	res, err := s.svc.Appointments.Creator().Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.StatusCode, res)
}

func (s *HTTPServer) handleListAppointments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := s.svc.Appointments.ListForPatient(r.Context(), q.Get("email"), q.Get("phone"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": list})
}

func (s *HTTPServer) handleCreateDiagnosticBooking(w http.ResponseWriter, r *http.Request) {
	var req models.DiagnosticBookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SubmitResult{Error: "Invalid request body."})
		return
	}
	res, err := s.svc.Diagnostics.Creator().Create(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res.StatusCode, res)
}

func (s *HTTPServer) handleListDiagnosticBookings(w http.ResponseWriter, r *http.Request) {
	list, err := s.svc.Diagnostics.ListForPatient(r.Context(), r.URL.Query().Get("email"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": list})
}

func (s *HTTPServer) handleContact(w http.ResponseWriter, r *http.Request) {
	var m models.ContactMessage
	if err := decodeJSON(w, r, &m); err != nil {
		writeJSON(w, http.StatusBadRequest, models.SubmitResult{Error: "Invalid request body."})
		return
	}
	if err := s.svc.Contact.Submit(r.Context(), s.auth.contactClient(r), &m); err != nil {
		res := service.SubmitResultFor(err)
		if res.StatusCode == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("contact message not stored")
		}
		writeJSON(w, res.StatusCode, res)
		return
	}
	writeJSON(w, http.StatusCreated, models.SubmitResult{Success: true, ID: m.ID})
}
