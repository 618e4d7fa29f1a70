// Package handler serves the watermark overlay layout to players that render it themselves.
package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"course-guard/internal/identity"
	"course-guard/internal/platform/httpx"
	"course-guard/internal/playback"
)

// Server serves /v1/playback.
type Server struct {
	brand string
	now   func() time.Time
}

// NewServer returns a playback Server labelling anonymous overlays with brand.
func NewServer(brand string) *Server {
	return &Server{brand: brand, now: time.Now}
}

// Routes mounts the playback endpoints on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/playback/watermark", s.Watermark)
}

type positionJSON struct {
	Name     string  `json:"name"`
	Top      float64 `json:"top"`
	Left     float64 `json:"left"`
	Rotation float64 `json:"rotation"`
}

type watermarkJSON struct {
	Label         string         `json:"label"`
	Positions     []positionJSON `json:"positions"`
	Strip         string         `json:"strip"`
	PointerEvents string         `json:"pointer_events"`
	Opacity       float64        `json:"opacity"`
}

// Watermark returns the overlay for the caller. A request without identity gets the brand overlay.
func (s *Server) Watermark(w http.ResponseWriter, r *http.Request) {
	viewer, _ := identity.FromContext(r.Context())
	wm := playback.BuildWatermark(viewer, s.brand, s.now())

	out := watermarkJSON{
		Label:         wm.Label(),
		Positions:     make([]positionJSON, 0, len(wm.Positions)),
		Strip:         wm.Strip,
		PointerEvents: "auto",
		Opacity:       wm.Opacity,
	}
	if !wm.PointerEvents {
		out.PointerEvents = "none"
	}
	for _, p := range wm.Positions {
		out.Positions = append(out.Positions, positionJSON(p))
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.JSON(w, http.StatusOK, out)
}
