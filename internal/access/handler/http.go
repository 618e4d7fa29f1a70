// Package handler exposes the access gate over the JSON API.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"course-guard/internal/access"
	"course-guard/internal/platform/httpx"
)

// Evaluator runs the gate for the identity in ctx.
type Evaluator interface {
	Evaluate(ctx context.Context) *access.Result
}

// Server serves /v1/access.
type Server struct {
	gate Evaluator
}

// NewServer returns an access Server.
func NewServer(gate Evaluator) *Server {
	return &Server{gate: gate}
}

// Routes mounts the access endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Post("/access/check", s.Check)
}

// Check runs the gate. It always answers 200: blocking states are data for the remediation screen.
// Requests without an identity pass, matching pre-auth rendering.
func (s *Server) Check(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, s.gate.Evaluate(r.Context()))
}
