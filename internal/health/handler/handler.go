// Package handler reports liveness and readiness for the JSON API and the gRPC health service.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"course-guard/internal/platform/httpx"
)

// checkTimeout bounds one readiness probe.
const checkTimeout = 2 * time.Second

// Pinger checks database connectivity (e.g. *sql.DB).
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PolicyChecker checks that the policy engine can evaluate (e.g. *engine.OPAEvaluator).
type PolicyChecker interface {
	HealthCheck(ctx context.Context) error
}

// Server answers /healthz and /readyz.
type Server struct {
	pinger Pinger
	policy PolicyChecker
}

// NewServer returns a health Server. Either dependency may be nil; its check is then skipped.
func NewServer(pinger Pinger, policy PolicyChecker) *Server {
	return &Server{pinger: pinger, policy: policy}
}

// Ready runs the readiness checks. All checks run; their errors are joined.
func (s *Server) Ready(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()
	var errs []error
	if s.pinger != nil {
		if err := s.pinger.PingContext(ctx); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	if s.policy != nil {
		if err := s.policy.HealthCheck(ctx); err != nil {
			errs = append(errs, fmt.Errorf("policy: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Healthz reports liveness. It never touches dependencies.
func (s *Server) Healthz(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Readyz reports readiness: 200 when every dependency answers, 503 otherwise.
func (s *Server) Readyz(w http.ResponseWriter, r *http.Request) {
	if err := s.Ready(r.Context()); err != nil {
		httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
}
