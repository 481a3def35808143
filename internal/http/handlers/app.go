package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"studio/internal/conversation"
	"studio/internal/domain"
	"studio/internal/infra"
	"studio/internal/session"
)

// App bundles the dependencies the HTTP handlers need.
type App struct {
	Manager   *conversation.Manager
	Sessions  *session.Registry
	Templates *domain.TemplateTable
	Uploader  domain.Uploader
	Logger    infra.Logger
}

// NewApp builds the handler container.
func NewApp(manager *conversation.Manager, sessions *session.Registry, templates *domain.TemplateTable, uploader domain.Uploader, logger infra.Logger) *App {
	return &App{Manager: manager, Sessions: sessions, Templates: templates, Uploader: uploader, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound), errors.Is(err, domain.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, domain.ErrConversationComplete),
		errors.Is(err, domain.ErrInputDisabled),
		errors.Is(err, domain.ErrProfileActive):
		code = http.StatusConflict
	}
	var failure *domain.Failure
	if errors.As(err, &failure) && failure.Kind == domain.FailureUpload {
		code = http.StatusUnprocessableEntity
	}
	a.json(w, code, map[string]string{"error": err.Error()})
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}
