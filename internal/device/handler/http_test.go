package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"course-guard/internal/access"
	"course-guard/internal/device/domain"
	"course-guard/internal/device/service"
	"course-guard/internal/identity"
	identitydomain "course-guard/internal/identity/domain"
)

type stubRegistry struct {
	devices   map[string][]*domain.Device
	listErr   error
	removeErr error
	removed   []string
}

func (s *stubRegistry) List(ctx context.Context, accountID string) ([]*domain.Device, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.devices[accountID], nil
}

func (s *stubRegistry) Remove(ctx context.Context, accountID, deviceID string) (*service.RemoveResult, error) {
	if s.removeErr != nil {
		return nil, s.removeErr
	}
	list := s.devices[accountID]
	for i, d := range list {
		if d.ID == deviceID {
			s.devices[accountID] = append(list[:i], list[i+1:]...)
			s.removed = append(s.removed, deviceID)
			return &service.RemoveResult{Success: true}, nil
		}
	}
	return &service.RemoveResult{Error: "device not found"}, nil
}

type stubGate struct{ calls int }

func (g *stubGate) Evaluate(ctx context.Context) *access.Result {
	g.calls++
	return &access.Result{State: access.StatePassed, MaxDevices: 2, CurrentDevices: 2}
}

func newRouter(s *Server) http.Handler {
	r := chi.NewRouter()
	r.Route("/v1", s.Routes)
	return r
}

func authed(req *http.Request, accountID string) *http.Request {
	return req.WithContext(identity.WithIdentity(req.Context(), &identitydomain.Identity{AccountID: accountID}))
}

func seeded() *stubRegistry {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	return &stubRegistry{devices: map[string][]*domain.Device{
		"acc-1": {
			{ID: "d1", AccountID: "acc-1", Fingerprint: "fp-1", Label: "Windows PC", LastUsedAt: now, CreatedAt: now},
			{ID: "d2", AccountID: "acc-1", Fingerprint: "fp-2", Label: "iPhone", LastUsedAt: now, CreatedAt: now},
		},
		"acc-2": {
			{ID: "d3", AccountID: "acc-2", Fingerprint: "fp-3", Label: "Mac", LastUsedAt: now, CreatedAt: now},
		},
	}}
}

func TestListDevices(t *testing.T) {
	h := newRouter(NewServer(seeded(), nil))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/devices", nil), "acc-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Devices []deviceJSON `json:"devices"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Devices, 2)
	require.Equal(t, "d1", body.Devices[0].ID)
	require.Equal(t, "Windows PC", body.Devices[0].Label)
}

func TestListDevices_Unauthenticated(t *testing.T) {
	h := newRouter(NewServer(seeded(), nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/devices", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestListDevices_StoreError(t *testing.T) {
	reg := seeded()
	reg.listErr = errors.New("db down")
	h := newRouter(NewServer(reg, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodGet, "/v1/devices", nil), "acc-1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRemoveDevice_RechecksGate(t *testing.T) {
	reg := seeded()
	gate := &stubGate{}
	h := newRouter(NewServer(reg, gate))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/v1/devices/d2", nil), "acc-1"))
	require.Equal(t, http.StatusOK, rec.Code)

	var body removeResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.True(t, body.Success)
	require.NotNil(t, body.Access)
	require.Equal(t, access.StatePassed, body.Access.State)
	require.Equal(t, 1, gate.calls)
	require.Equal(t, []string{"d2"}, reg.removed)
}

func TestRemoveDevice_ForeignDeviceNotFound(t *testing.T) {
	reg := seeded()
	gate := &stubGate{}
	h := newRouter(NewServer(reg, gate))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/v1/devices/d3", nil), "acc-1"))
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Zero(t, gate.calls)
	require.Len(t, reg.devices["acc-2"], 1)
}

func TestRemoveDevice_StoreError(t *testing.T) {
	reg := seeded()
	reg.removeErr = errors.New("db down")
	h := newRouter(NewServer(reg, nil))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, authed(httptest.NewRequest(http.MethodDelete, "/v1/devices/d1", nil), "acc-1"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}
