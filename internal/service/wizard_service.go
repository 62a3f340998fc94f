package service

import (
	"context"
	"strings"
	"sync"
	"time"

	"medcenter/internal/domain"
	"medcenter/internal/metrics"
	"medcenter/internal/models"
	"medcenter/internal/wizard"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DoctorLookup resolves a doctor id chosen in the wizard.
type DoctorLookup interface {
	DoctorByID(ctx context.Context, id int64) (*models.Doctor, error)
}

// AppointmentPatch sets the non-nil fields of an appointment draft.
type AppointmentPatch struct {
	ServiceType *string `json:"service_type,omitempty"`
	DoctorID    *int64  `json:"doctor_id,omitempty"`
	Date        *string `json:"date,omitempty"` // YYYY-MM-DD, "" clears
	TimeSlot    *string `json:"time_slot,omitempty"`
	PatientName *string `json:"patient_name,omitempty"`
	Email       *string `json:"email,omitempty"`
	Phone       *string `json:"phone,omitempty"`
	City        *string `json:"city,omitempty"`
	Reason      *string `json:"reason,omitempty"`
}

// DiagnosticsPatch sets the non-nil fields of a diagnostics draft.
type DiagnosticsPatch struct {
	TestIDs        *[]int64 `json:"test_ids,omitempty"`
	PackageIDs     *[]int64 `json:"package_ids,omitempty"`
	PatientName    *string  `json:"patient_name,omitempty"`
	Email          *string  `json:"email,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Address        *string  `json:"address,omitempty"`
	HomeCollection *bool    `json:"home_collection,omitempty"`
	Date           *string  `json:"date,omitempty"`
	TimeSlot       *string  `json:"time_slot,omitempty"`
	PaymentMethod  *string  `json:"payment_method,omitempty"`
	CardNumber     *string  `json:"card_number,omitempty"`
}

type WizardPatch struct {
	Appointment *AppointmentPatch `json:"appointment,omitempty"`
	Diagnostics *DiagnosticsPatch `json:"diagnostics,omitempty"`
}

// WizardState is a session plus where it stands in its flow.
type WizardState struct {
	Session  *models.WizardSession `json:"session"`
	StepName string                `json:"step_name"`
	Steps    int                   `json:"steps"`
	Terminal bool                  `json:"terminal"`
}

// WizardService runs wizard flows for clients that keep no state of their
// own. Operations on one session are serialised.
type WizardService struct {
	sessions     domain.SessionRepository
	doctors      DoctorLookup
	rules        wizard.Rules
	appointments *wizard.Gate[*models.AppointmentDraft, models.AppointmentRequest]
	diagnostics  *wizard.Gate[*models.DiagnosticsDraft, models.DiagnosticBookingRequest]
	logger       *zerolog.Logger

	locks keyedMutex
	newID func() string
}

func NewWizardService(
	sessions domain.SessionRepository,
	doctors DoctorLookup,
	rules wizard.Rules,
	appointments wizard.Creator[models.AppointmentRequest],
	diagnostics wizard.Creator[models.DiagnosticBookingRequest],
	listingRoute string,
	logger *zerolog.Logger,
) *WizardService {
	return &WizardService{
		sessions:     sessions,
		doctors:      doctors,
		rules:        rules,
		appointments: wizard.NewAppointmentGate(appointments, listingRoute),
		diagnostics:  wizard.NewDiagnosticsGate(diagnostics, listingRoute),
		logger:       logger,
		newID:        uuid.NewString,
	}
}

func (s *WizardService) now() time.Time {
	if s.rules.Now == nil {
		return time.Now()
	}
	return s.rules.Now()
}

// Start opens a flow on step 1 with a draft pre-filled from identity.
func (s *WizardService) Start(ctx context.Context, flow string, identity wizard.IdentityProvider) (*WizardState, error) {
	now := s.now()
	sess := &models.WizardSession{
		ID:        s.newID(),
		Flow:      flow,
		Step:      1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	switch flow {
	case models.FlowAppointment:
		sess.Appointment = wizard.StartAppointment(ctx, identity)
	case models.FlowDiagnostics:
		sess.Diagnostics = wizard.StartDiagnostics(ctx, identity)
	default:
		return nil, ErrUnknownFlow
	}

	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	s.logger.Debug().Str("session_id", sess.ID).Str("flow", flow).Msg("wizard started")
	return s.state(sess), nil
}

func (s *WizardService) Get(ctx context.Context, id string) (*WizardState, error) {
	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.state(sess), nil
}

// Update applies patch to the draft. The cursor does not move.
func (s *WizardService) Update(ctx context.Context, id string, patch WizardPatch) (*WizardState, error) {
	defer s.locks.Lock(id)()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch sess.Flow {
	case models.FlowAppointment:
		if patch.Appointment != nil {
			if err := s.patchAppointment(ctx, sess.Appointment, patch.Appointment); err != nil {
				return nil, err
			}
		}
	case models.FlowDiagnostics:
		if patch.Diagnostics != nil {
			if err := patchDiagnostics(sess.Diagnostics, patch.Diagnostics); err != nil {
				return nil, err
			}
		}
	}

	return s.save(ctx, sess)
}

// Advance validates the current step and moves forward. On a
// *wizard.ValidationError the returned state is the unchanged session.
func (s *WizardService) Advance(ctx context.Context, id string) (*WizardState, error) {
	return s.move(ctx, id, "forward")
}

func (s *WizardService) Retreat(ctx context.Context, id string) (*WizardState, error) {
	return s.move(ctx, id, "back")
}

func (s *WizardService) move(ctx context.Context, id, direction string) (*WizardState, error) {
	defer s.locks.Lock(id)()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var moveErr error
	switch sess.Flow {
	case models.FlowAppointment:
		seq := wizard.NewAppointmentSequencer(s.rules)
		seq.Restore(sess.Step)
		if direction == "forward" {
			moveErr = seq.Advance(sess.Appointment)
		} else {
			seq.Retreat()
		}
		sess.Step = seq.Current()
	case models.FlowDiagnostics:
		seq := wizard.NewDiagnosticsSequencer(s.rules)
		seq.Restore(sess.Step)
		if direction == "forward" {
			moveErr = seq.Advance(sess.Diagnostics)
		} else {
			seq.Retreat()
		}
		sess.Step = seq.Current()
	default:
		return nil, ErrUnknownFlow
	}

	if moveErr != nil {
		metrics.IncWizardTransition(sess.Flow, direction, "blocked")
		return s.state(sess), moveErr
	}
	metrics.IncWizardTransition(sess.Flow, direction, "ok")
	return s.save(ctx, sess)
}

// Submit sends the draft through the flow's gate exactly once. The session is
// deleted only after a confirmed submission; on failure it is kept as is so
// the client can correct it and resubmit.
func (s *WizardService) Submit(ctx context.Context, id string) (*wizard.Outcome, error) {
	defer s.locks.Lock(id)()

	sess, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	var outcome *wizard.Outcome
	switch sess.Flow {
	case models.FlowAppointment:
		seq := wizard.NewAppointmentSequencer(s.rules)
		seq.Restore(sess.Step)
		outcome, err = s.appointments.Submit(ctx, seq, sess.Appointment)
	case models.FlowDiagnostics:
		seq := wizard.NewDiagnosticsSequencer(s.rules)
		seq.Restore(sess.Step)
		outcome, err = s.diagnostics.Submit(ctx, seq, sess.Diagnostics)
	default:
		return nil, ErrUnknownFlow
	}
	if err != nil {
		s.logger.Info().Err(err).Str("session_id", id).Str("flow", sess.Flow).Msg("wizard submission refused")
		return nil, err
	}

	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		s.logger.Warn().Err(err).Str("session_id", id).Msg("failed to delete submitted wizard session")
	}
	s.logger.Info().Str("session_id", id).Str("flow", sess.Flow).Int64("id", outcome.ID).Msg("wizard submitted")
	return outcome, nil
}

// Cancel discards the session and its draft.
func (s *WizardService) Cancel(ctx context.Context, id string) error {
	defer s.locks.Lock(id)()
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return err
	}
	return nil
}

func (s *WizardService) load(ctx context.Context, id string) (*models.WizardSession, error) {
	sess, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrSessionNotFound
	}
	switch {
	case sess.Flow == models.FlowAppointment && sess.Appointment == nil:
		sess.Appointment = models.NewAppointmentDraft(nil)
	case sess.Flow == models.FlowDiagnostics && sess.Diagnostics == nil:
		sess.Diagnostics = models.NewDiagnosticsDraft(nil)
	}
	return sess, nil
}

func (s *WizardService) save(ctx context.Context, sess *models.WizardSession) (*WizardState, error) {
	sess.UpdatedAt = s.now()
	if err := s.sessions.SaveSession(ctx, sess); err != nil {
		return nil, err
	}
	return s.state(sess), nil
}

func (s *WizardService) state(sess *models.WizardSession) *WizardState {
	st := &WizardState{Session: sess}
	switch sess.Flow {
	case models.FlowAppointment:
		seq := wizard.NewAppointmentSequencer(s.rules)
		seq.Restore(sess.Step)
		st.StepName, st.Steps, st.Terminal = seq.Step().Name, seq.Len(), seq.IsTerminal()
	case models.FlowDiagnostics:
		seq := wizard.NewDiagnosticsSequencer(s.rules)
		seq.Restore(sess.Step)
		st.StepName, st.Steps, st.Terminal = seq.Step().Name, seq.Len(), seq.IsTerminal()
	}
	return st
}

func (s *WizardService) patchAppointment(ctx context.Context, d *models.AppointmentDraft, p *AppointmentPatch) error {
	if p.ServiceType != nil {
		d.ServiceType = *p.ServiceType
	}
	if p.DoctorID != nil {
		if *p.DoctorID == 0 {
			d.Doctor = nil
		} else {
			doc, err := s.doctors.DoctorByID(ctx, *p.DoctorID)
			if err != nil {
				return err
			}
			d.Doctor = doc.Ref()
		}
	}
	if p.Date != nil {
		date, err := parseDraftDate(*p.Date)
		if err != nil {
			return err
		}
		d.Date = date
	}
	setString(&d.TimeSlot, p.TimeSlot)
	setString(&d.PatientName, p.PatientName)
	setString(&d.Email, p.Email)
	setString(&d.Phone, p.Phone)
	setString(&d.City, p.City)
	setString(&d.Reason, p.Reason)
	return nil
}

func patchDiagnostics(d *models.DiagnosticsDraft, p *DiagnosticsPatch) error {
	if p.TestIDs != nil {
		d.TestIDs = uniqueIDs(*p.TestIDs)
	}
	if p.PackageIDs != nil {
		d.PackageIDs = uniqueIDs(*p.PackageIDs)
	}
	if p.HomeCollection != nil {
		d.HomeCollection = *p.HomeCollection
	}
	if p.Date != nil {
		date, err := parseDraftDate(*p.Date)
		if err != nil {
			return err
		}
		d.Date = date
	}
	setString(&d.PatientName, p.PatientName)
	setString(&d.Email, p.Email)
	setString(&d.Phone, p.Phone)
	setString(&d.Address, p.Address)
	setString(&d.TimeSlot, p.TimeSlot)
	setString(&d.PaymentMethod, p.PaymentMethod)
	setString(&d.CardNumber, p.CardNumber)
	return nil
}

func parseDraftDate(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}, nil
	}
	date, err := time.ParseInLocation(models.DateLayout, v, time.Local)
	if err != nil {
		return time.Time{}, invalid("Please select a valid date (YYYY-MM-DD).")
	}
	return date, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// keyedMutex hands out one mutex per key, dropped when no one holds it.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

func (k *keyedMutex) Lock(key string) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[string]*keyedEntry)
	}
	e, ok := k.locks[key]
	if !ok {
		e = &keyedEntry{}
		k.locks[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
	}
}
