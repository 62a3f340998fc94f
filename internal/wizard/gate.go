package wizard

import (
	"context"

	"medcenter/internal/models"
)

// Creator performs the single booking-creation call. A returned error means
// the call did not complete; a result with Success=false or a non-2xx status
// is an application-level refusal.
type Creator[P any] interface {
	Create(ctx context.Context, payload P) (*models.SubmitResult, error)
}

// CreatorFunc adapts a function to Creator.
type CreatorFunc[P any] func(ctx context.Context, payload P) (*models.SubmitResult, error)

func (f CreatorFunc[P]) Create(ctx context.Context, payload P) (*models.SubmitResult, error) {
	return f(ctx, payload)
}

// Outcome is what the user sees after a confirmed submission.
type Outcome struct {
	Message   string
	Redirect  string
	ID        int64
	Reference string
}

// Gate turns a completed draft into exactly one Creator call.
type Gate[D any, P any] struct {
	creator      Creator[P]
	build        func(D) P
	listing      string
	confirmation string
}

func NewGate[D any, P any](creator Creator[P], build func(D) P, listingRoute, confirmation string) *Gate[D, P] {
	if listingRoute == "" {
		listingRoute = models.DefaultListingRoute
	}
	return &Gate[D, P]{creator: creator, build: build, listing: listingRoute, confirmation: confirmation}
}

func NewAppointmentGate(c Creator[models.AppointmentRequest], listingRoute string) *Gate[*models.AppointmentDraft, models.AppointmentRequest] {
	return NewGate(c, AppointmentRequest, listingRoute, "Your appointment has been booked successfully!")
}

func NewDiagnosticsGate(c Creator[models.DiagnosticBookingRequest], listingRoute string) *Gate[*models.DiagnosticsDraft, models.DiagnosticBookingRequest] {
	return NewGate(c, DiagnosticsRequest, listingRoute, "Your diagnostic test booking is confirmed!")
}

// Submit requires seq to be on its terminal step with every step satisfied.
// On any error the draft and cursor are left as they were, so the user can
// correct and resubmit.
func (g *Gate[D, P]) Submit(ctx context.Context, seq *Sequencer[D], draft D) (*Outcome, error) {
	if !seq.IsTerminal() {
		return nil, ErrNotOnReviewStep
	}
	if err := seq.ValidateThrough(draft); err != nil {
		return nil, err
	}

	res, err := g.creator.Create(ctx, g.build(draft))
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	if res == nil {
		return nil, newApplicationError(0, "")
	}
	if !res.OK() || !res.Success {
		return nil, newApplicationError(res.StatusCode, res.Error)
	}

	return &Outcome{
		Message:   g.confirmation,
		Redirect:  g.listing,
		ID:        res.ID,
		Reference: res.Reference,
	}, nil
}
