// Package server assembles the JSON API router and the gRPC health server.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	accesshandler "course-guard/internal/access/handler"
	audithandler "course-guard/internal/audit/handler"
	"course-guard/internal/clientip"
	devicehandler "course-guard/internal/device/handler"
	healthhandler "course-guard/internal/health/handler"
	playbackhandler "course-guard/internal/playback/handler"
	sessionhandler "course-guard/internal/session/handler"
)

// requestTimeout bounds a single API request.
const requestTimeout = 15 * time.Second

// Deps holds the handlers and cross-cutting settings of the JSON API. Nil handlers leave their routes unmounted.
type Deps struct {
	Access   *accesshandler.Server
	Devices  *devicehandler.Server
	Sessions *sessionhandler.Server
	Playback *playbackhandler.Server
	Audit    *audithandler.Server
	Health   *healthhandler.Server

	Verifier TokenVerifier
	Logger   zerolog.Logger
	// Registry receives the HTTP metrics and backs /metrics. Nil uses the default registry.
	Registry *prometheus.Registry

	CORSOrigins        []string
	RateLimitPerMinute int
	// SessionCookieMaxAge is the lifetime of the course_session cookie.
	SessionCookieMaxAge time.Duration
}

// NewRouter returns the JSON API.
//
//	GET  /healthz, /readyz, /metrics
//	POST /v1/access/check
//	GET  /v1/devices, DELETE /v1/devices/{deviceId}
//	POST /v1/sessions/force, GET /v1/sessions/validate, POST /v1/sessions/end
//	GET  /v1/playback/watermark
//	GET  /v1/audit
func NewRouter(deps Deps) http.Handler {
	var reg prometheus.Registerer = prometheus.DefaultRegisterer
	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if deps.Registry != nil {
		reg, gatherer = deps.Registry, deps.Registry
	}
	metrics := NewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(clientip.Middleware)
	r.Use(RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	if len(deps.CORSOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   deps.CORSOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Screen-Resolution", "X-Timezone", "X-Visitor-Id", "X-Session-Token", clientip.HeaderEchoIP},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if deps.Health != nil {
		r.Get("/healthz", deps.Health.Healthz)
		r.Get("/readyz", deps.Health.Readyz)
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	limit := deps.RateLimitPerMinute
	if limit <= 0 {
		limit = 120
	}
	r.Route("/v1", func(r chi.Router) {
		r.Use(httprate.LimitByIP(limit, time.Minute))
		r.Use(middleware.Timeout(requestTimeout))
		r.Use(Authenticate(deps.Verifier))
		r.Use(DeviceEnv(deps.SessionCookieMaxAge))

		if deps.Access != nil {
			deps.Access.Routes(r)
		}
		if deps.Devices != nil {
			deps.Devices.Routes(r)
		}
		if deps.Sessions != nil {
			deps.Sessions.Routes(r)
		}
		if deps.Playback != nil {
			deps.Playback.Routes(r)
		}
		if deps.Audit != nil {
			deps.Audit.Routes(r)
		}
	})
	return r
}
