package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"studio/internal/domain"
	"studio/internal/gallery"
	"studio/internal/generation"
	"studio/internal/infra"
	"studio/internal/middleware"
	"studio/internal/notify"
	"studio/internal/storage"
)

// Submitter is the write side used by the submit endpoints.
type Submitter interface {
	Submit(ctx context.Context, ownerID string, req domain.SubmitRequest) (string, error)
}

var _ Submitter = (*generation.Submitter)(nil)

type App struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Submitter   Submitter
	Generations domain.GenerationRepository
	Projector   *gallery.Projector
	Events      notify.Subscriber
	Assets      storage.BlobStore
	// Ping reports database reachability for the health check.
	Ping func(ctx context.Context) error
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, status int, code, message string) {
	a.json(w, status, errorResponse{Error: message, Code: code})
}

// fail maps err onto the error taxonomy and writes the matching response.
func (a *App) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	if status >= http.StatusInternalServerError {
		a.Logger.Error().Err(err).
			Str("request_id", middleware.RequestIDFromContext(r.Context())).
			Str("path", r.URL.Path).
			Msg("request failed")
	}
	a.error(w, status, code, domain.Message(err))
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, domain.ErrAuth):
		return http.StatusUnauthorized, "auth_error"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, domain.ErrPersistence):
		return http.StatusInternalServerError, "persistence_error"
	case errors.Is(err, domain.ErrUpstream):
		return http.StatusInternalServerError, "upstream_error"
	}
	return http.StatusInternalServerError, "internal_error"
}

func (a *App) currentUserID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

// decode reads a JSON body of at most 1 MiB into v.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return domain.Validationf("invalid payload")
	}
	return nil
}
