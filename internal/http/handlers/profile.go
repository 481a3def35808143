package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/poll"
)

type startProfileRequest struct {
	JobID string `json:"jobId"`
}

// StartProfile launches business-profile creation polling for the session.
// Only one flow may run per session; a second start while one is pending is
// rejected so two dwell timers can never race.
func (a *App) StartProfile(w http.ResponseWriter, r *http.Request) {
	var req startProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.JobID == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "jobId is required"})
		return
	}
	flow, err := a.Manager.StartProfileCreation(r.Context(), chi.URLParam(r, "id"), req.JobID)
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusAccepted, flow.Status())
}

// GetProfile reports the flow's current phase.
func (a *App) GetProfile(w http.ResponseWriter, r *http.Request) {
	s, ok := a.Sessions.Get(chi.URLParam(r, "id"))
	if !ok {
		a.json(w, http.StatusNotFound, map[string]string{"error": "session not found"})
		return
	}
	flow, ok := s.CurrentFlow().(*poll.ProfileFlow)
	if !ok || flow == nil {
		a.json(w, http.StatusNotFound, map[string]string{"error": "no profile creation in progress"})
		return
	}
	a.json(w, http.StatusOK, flow.Status())
}
