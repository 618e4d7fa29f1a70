// Package handler exposes the device registry over the JSON API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"course-guard/internal/access"
	"course-guard/internal/device/domain"
	"course-guard/internal/device/service"
	"course-guard/internal/logging"
	"course-guard/internal/platform/httpx"
)

// Registry is the subset of the device registry the handler needs.
type Registry interface {
	List(ctx context.Context, accountID string) ([]*domain.Device, error)
	Remove(ctx context.Context, accountID, deviceID string) (*service.RemoveResult, error)
}

// Rechecker re-runs the access gate after a remediation step.
type Rechecker interface {
	Evaluate(ctx context.Context) *access.Result
}

// Server serves /v1/devices.
type Server struct {
	registry Registry
	gate     Rechecker
}

// NewServer returns a device Server. gate may be nil; then removals are not followed by a re-check.
func NewServer(registry Registry, gate Rechecker) *Server {
	return &Server{registry: registry, gate: gate}
}

// Routes mounts the device endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/devices", s.ListDevices)
	r.Delete("/devices/{deviceId}", s.RemoveDevice)
}

type deviceJSON struct {
	ID          string    `json:"id"`
	Fingerprint string    `json:"fingerprint"`
	Label       string    `json:"label"`
	UserAgent   string    `json:"user_agent,omitempty"`
	LastUsedAt  time.Time `json:"last_used_at"`
	CreatedAt   time.Time `json:"created_at"`
}

type removeResponse struct {
	Success bool           `json:"success"`
	Error   string         `json:"error,omitempty"`
	Access  *access.Result `json:"access,omitempty"`
}

// ListDevices returns the caller's registered devices, most recently used first.
func (s *Server) ListDevices(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	list, err := s.registry.List(r.Context(), id.AccountID)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("device: list failed")
		httpx.Error(w, http.StatusInternalServerError, "failed to list devices")
		return
	}
	out := make([]deviceJSON, 0, len(list))
	for _, d := range list {
		out = append(out, deviceToJSON(d))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"devices": out})
}

// RemoveDevice deletes one of the caller's devices, then re-runs the gate so the client can leave the
// remediation screen without another round trip.
func (s *Server) RemoveDevice(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	res, err := s.registry.Remove(r.Context(), id.AccountID, chi.URLParam(r, "deviceId"))
	if err != nil {
		if errors.Is(err, service.ErrAccountRequired) {
			httpx.Error(w, http.StatusUnauthorized, "authentication required")
			return
		}
		logging.Ctx(r.Context()).Error().Err(err).Msg("device: remove failed")
		httpx.Error(w, http.StatusInternalServerError, "failed to remove device")
		return
	}
	if !res.Success {
		httpx.JSON(w, http.StatusNotFound, removeResponse{Error: res.Error})
		return
	}
	out := removeResponse{Success: true}
	if s.gate != nil {
		out.Access = s.gate.Evaluate(r.Context())
	}
	httpx.JSON(w, http.StatusOK, out)
}

func deviceToJSON(d *domain.Device) deviceJSON {
	return deviceJSON{
		ID:          d.ID,
		Fingerprint: d.Fingerprint,
		Label:       d.Label,
		UserAgent:   d.UserAgent,
		LastUsedAt:  d.LastUsedAt,
		CreatedAt:   d.CreatedAt,
	}
}
