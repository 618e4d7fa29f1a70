// Package handler exposes the session registry over the JSON API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-guard/internal/access"
	"course-guard/internal/logging"
	"course-guard/internal/platform/httpx"
)

// Registry is the subset of the session registry the handler needs.
type Registry interface {
	ValidateSession(ctx context.Context, accountID string) (bool, error)
	EndSession(ctx context.Context, accountID string) error
}

// Forcer takes over the account's session for the calling device. *access.Gate satisfies it.
type Forcer interface {
	Force(ctx context.Context, accountID string) (*access.Result, error)
}

// Server serves /v1/sessions.
type Server struct {
	registry Registry
	forcer   Forcer
}

// NewServer returns a session Server.
func NewServer(registry Registry, forcer Forcer) *Server {
	return &Server{registry: registry, forcer: forcer}
}

// Routes mounts the session endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/sessions/force", s.ForceSession)
	r.Get("/sessions/validate", s.ValidateSession)
	r.Post("/sessions/end", s.EndSession)
}

// ForceSession makes the calling device the account's only active session. This is the
// "sign the other device out" action of the concurrent-session screen. A device over the
// limit gets 403 with the device-limit result and no session.
func (s *Server) ForceSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	res, err := s.forcer.Force(r.Context(), id.AccountID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("session: force failed")
		httpx.Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	if res.State != access.StatePassed {
		httpx.JSON(w, http.StatusForbidden, res)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"session_token": res.SessionToken})
}

// ValidateSession reports whether the caller's cached token is still live. A failing store reads as invalid.
func (s *Server) ValidateSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	valid, err := s.registry.ValidateSession(r.Context(), id.AccountID)
	if err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Msg("session: validate failed")
		valid = false
	}
	httpx.JSON(w, http.StatusOK, map[string]bool{"valid": valid})
}

// EndSession signs the calling device out.
func (s *Server) EndSession(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	if err := s.registry.EndSession(r.Context(), id.AccountID); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("session: end failed")
		httpx.Error(w, http.StatusInternalServerError, "failed to end session")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
