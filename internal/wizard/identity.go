package wizard

import (
	"context"
	"strings"

	"medcenter/internal/models"
)

// IdentityProvider returns the known user, if any, used to pre-fill a draft.
// It is read once when a flow starts.
type IdentityProvider interface {
	Identity(ctx context.Context) (*models.Identity, bool)
}

// StaticIdentity provides a fixed identity; the zero value provides none.
type StaticIdentity models.Identity

func (s StaticIdentity) Identity(context.Context) (*models.Identity, bool) {
	id := models.Identity{Name: strings.TrimSpace(s.Name), Email: strings.TrimSpace(s.Email)}
	if id.Name == "" && id.Email == "" {
		return nil, false
	}
	return &id, true
}

func lookupIdentity(ctx context.Context, p IdentityProvider) *models.Identity {
	if p == nil {
		return nil
	}
	id, ok := p.Identity(ctx)
	if !ok {
		return nil
	}
	return id
}

// StartAppointment returns an empty appointment draft pre-filled from p.
func StartAppointment(ctx context.Context, p IdentityProvider) *models.AppointmentDraft {
	return models.NewAppointmentDraft(lookupIdentity(ctx, p))
}

// StartDiagnostics returns an empty diagnostics draft pre-filled from p.
func StartDiagnostics(ctx context.Context, p IdentityProvider) *models.DiagnosticsDraft {
	return models.NewDiagnosticsDraft(lookupIdentity(ctx, p))
}
