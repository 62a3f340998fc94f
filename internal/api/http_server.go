package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"medcenter/internal/config"
	"medcenter/internal/domain"
	"medcenter/internal/metrics"
	"medcenter/internal/pages"
	"medcenter/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// Services are the use cases behind the REST API.
type Services struct {
	Catalog      *service.CatalogService
	Appointments *service.AppointmentService
	Diagnostics  *service.DiagnosticsService
	Contact      *service.ContactService
	Wizards      *service.WizardService
	Pages        *pages.Registry
	Sync         domain.SyncWorker
}

// HTTPServer serves the website and bot API alongside the gRPC service.
type HTTPServer struct {
	cfg    config.APIConfig
	svc    Services
	auth   *HTTPAuth
	server *http.Server
	log    zerolog.Logger
}

func NewHTTPServer(cfg config.APIConfig, svc Services, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:  cfg,
		svc:  svc,
		auth: NewHTTPAuth(cfg),
		log:  zerolog.Nop(),
	}
	if logger != nil {
		srv.log = logger.With().Str("component", "http").Logger()
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
	}
	return srv
}

func (s *HTTPServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id", s.auth.keys.header},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	bookingLimit := httprate.LimitByIP(s.cfg.RateLimit.BookingsPerMinute, time.Minute)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.RateLimit)

		r.Get("/departments", s.handleDepartments)
		r.Get("/departments/{slug}/page", s.handleDepartmentPage)
		r.Get("/doctors", s.handleDoctors)
		r.Get("/doctors/{id}/slots", s.handleSlots)
		r.Get("/diagnostics/tests", s.handleTests)
		r.Get("/diagnostics/packages", s.handlePackages)
		r.Get("/diagnostics/categories", s.handleTestCategories)
		r.Get("/first-aid", s.handleFirstAid)

		r.With(bookingLimit).Post("/appointments", s.handleCreateAppointment)
		r.Get("/appointments", s.handleListAppointments)
		r.With(bookingLimit).Post("/diagnostics/bookings", s.handleCreateDiagnosticBooking)
		r.Get("/diagnostics/bookings", s.handleListDiagnosticBookings)
		r.Post("/contact", s.handleContact)

		r.Route("/wizards", func(r chi.Router) {
			r.Post("/", s.handleWizardStart)
			r.Get("/{id}", s.handleWizardGet)
			r.Patch("/{id}", s.handleWizardUpdate)
			r.Post("/{id}/advance", s.handleWizardAdvance)
			r.Post("/{id}/back", s.handleWizardRetreat)
			r.With(bookingLimit).Post("/{id}/submit", s.handleWizardSubmit)
			r.Delete("/{id}", s.handleWizardCancel)
		})

		r.Route("/staff", func(r chi.Router) {
			r.With(s.auth.Require(permStaffAppointments)).Get("/appointments", s.handleStaffAppointments)
			r.With(s.auth.Require(permStaffAppointments)).Patch("/appointments/{id}/status", s.handleStaffStatus)
			r.With(s.auth.Require(permStaffExport)).Get("/appointments/export", s.handleStaffExport)
			r.With(s.auth.Require(permStaffContact)).Get("/contact", s.handleStaffContact)
			r.With(s.auth.Require(permStaffSync)).Post("/sheets/resync", s.handleStaffResync)
		})
	})

	return r
}

func (s *HTTPServer) Handler() http.Handler {
	return s.server.Handler
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return errors.New("http server is not initialized")
	}
	s.log.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		code := ww.Status()
		if code == 0 {
			code = http.StatusOK
		}
		metrics.ObserveHTTP(route, code, elapsed)

		s.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", code).
			Dur("duration", elapsed).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeServiceError maps err through the service error table. Internal
// failures are logged and answered without detail.
func (s *HTTPServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := service.StatusCode(err)
	if code == http.StatusInternalServerError {
		s.log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, code, "internal error")
		return
	}
	writeError(w, code, service.UserMessage(err))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}
