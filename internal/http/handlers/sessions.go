package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"studio/internal/domain"
	"studio/internal/middleware"
)

type createSessionRequest struct {
	UserID string `json:"userId"`
}

// CreateSession opens a fresh session for a signed-in user. The session id
// keys the in-memory conversation cache for the lifetime of the tab.
func (a *App) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "userId is required"})
		return
	}
	s := a.Sessions.Create(req.UserID, middleware.LocaleFromContext(r.Context()))
	a.json(w, http.StatusCreated, map[string]string{"sessionId": s.ID})
}

// DeleteSession tears a session down (sign-out), cancelling outstanding
// polls and dropping every cached conversation.
func (a *App) DeleteSession(w http.ResponseWriter, r *http.Request) {
	a.Sessions.Delete(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

type selectTemplateRequest struct {
	Template int `json:"template"`
}

// SelectTemplate switches the session's active template and returns the
// restored conversation exactly as the user left it.
func (a *App) SelectTemplate(w http.ResponseWriter, r *http.Request) {
	var req selectTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	state, err := a.Manager.SelectTemplate(chi.URLParam(r, "id"), domain.Template(req.Template))
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, state)
}

// ListTemplates enumerates the configured templates so clients never offer a
// flow the service cannot dispatch.
func (a *App) ListTemplates(w http.ResponseWriter, r *http.Request) {
	type entry struct {
		ID   int    `json:"id"`
		Name string `json:"name"`
	}
	var out []entry
	for _, t := range a.Templates.Templates() {
		out = append(out, entry{ID: int(t), Name: t.String()})
	}
	a.json(w, http.StatusOK, map[string]any{"templates": out})
}

// GetConversation snapshots the active conversation.
func (a *App) GetConversation(w http.ResponseWriter, r *http.Request) {
	state, err := a.Manager.Conversation(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, err)
		return
	}
	a.json(w, http.StatusOK, state)
}
