package api

import (
	"errors"
	"net/http"

	"medcenter/internal/models"
	"medcenter/internal/service"
	"medcenter/internal/wizard"

	"github.com/go-chi/chi/v5"
)

type startWizardRequest struct {
	Flow     string           `json:"flow"`
	Identity *models.Identity `json:"identity,omitempty"`
}

type submitWizardResponse struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Message   string `json:"message,omitempty"`
	Redirect  string `json:"redirect,omitempty"`
	ID        int64  `json:"id,omitempty"`
	Reference string `json:"reference,omitempty"`
}

func (s *HTTPServer) handleWizardStart(w http.ResponseWriter, r *http.Request) {
	var req startWizardRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var identity wizard.StaticIdentity
	if req.Identity != nil {
		identity = wizard.StaticIdentity(*req.Identity)
	}
	state, err := s.svc.Wizards.Start(r.Context(), req.Flow, identity)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

func (s *HTTPServer) handleWizardGet(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Wizards.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *HTTPServer) handleWizardUpdate(w http.ResponseWriter, r *http.Request) {
	var patch service.WizardPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	state, err := s.svc.Wizards.Update(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *HTTPServer) handleWizardAdvance(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Wizards.Advance(r.Context(), chi.URLParam(r, "id"))
	s.writeMove(w, r, state, err)
}

func (s *HTTPServer) handleWizardRetreat(w http.ResponseWriter, r *http.Request) {
	state, err := s.svc.Wizards.Retreat(r.Context(), chi.URLParam(r, "id"))
	s.writeMove(w, r, state, err)
}

// writeMove reports a blocked transition as 422 with the unchanged state, so
// the client can show the message next to the step.
func (s *HTTPServer) writeMove(w http.ResponseWriter, r *http.Request, state *service.WizardState, err error) {
	var validation *wizard.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, state)
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": validation.Message,
			"field": validation.Name,
			"state": state,
		})
	default:
		s.writeServiceError(w, r, err)
	}
}

func (s *HTTPServer) handleWizardSubmit(w http.ResponseWriter, r *http.Request) {
	outcome, err := s.svc.Wizards.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		code := service.StatusCode(err)
		if code == http.StatusInternalServerError {
			s.log.Error().Err(err).Msg("wizard submission failed")
		}
		writeJSON(w, code, submitWizardResponse{Error: service.UserMessage(err)})
		return
	}
	writeJSON(w, http.StatusCreated, submitWizardResponse{
		Success:   true,
		Message:   outcome.Message,
		Redirect:  outcome.Redirect,
		ID:        outcome.ID,
		Reference: outcome.Reference,
	})
}

func (s *HTTPServer) handleWizardCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Wizards.Cancel(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
