// Package handler exposes the caller's audit trail over the JSON API.
package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"course-guard/internal/audit/domain"
	"course-guard/internal/logging"
	"course-guard/internal/platform/httpx"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Lister reads audit entries.
type Lister interface {
	ListByAccount(ctx context.Context, accountID string, limit, offset int32) ([]*domain.AuditLog, error)
}

// Server serves /v1/audit.
type Server struct {
	repo Lister
}

// NewServer returns an audit Server.
func NewServer(repo Lister) *Server {
	return &Server{repo: repo}
}

// Routes mounts the audit endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/audit", s.ListAuditLogs)
}

type entryJSON struct {
	ID        string          `json:"id"`
	Action    string          `json:"action"`
	Resource  string          `json:"resource"`
	IP        string          `json:"ip"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListAuditLogs returns the caller's entries, newest first. Query: limit (1-200, default 50), offset.
func (s *Server) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	id, err := httpx.RequireAccount(w, r)
	if err != nil {
		return
	}
	limit := queryInt(r, "limit", defaultPageSize)
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	offset := queryInt(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	list, err := s.repo.ListByAccount(r.Context(), id.AccountID, int32(limit), int32(offset))
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("audit: list failed")
		httpx.Error(w, http.StatusInternalServerError, "failed to list audit logs")
		return
	}
	out := make([]entryJSON, 0, len(list))
	for _, a := range list {
		e := entryJSON{ID: a.ID, Action: a.Action, Resource: a.Resource, IP: a.IP, CreatedAt: a.CreatedAt}
		if a.Metadata != "" && json.Valid([]byte(a.Metadata)) {
			e.Metadata = json.RawMessage(a.Metadata)
		}
		out = append(out, e)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"entries": out, "limit": limit, "offset": offset})
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
