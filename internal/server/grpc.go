package server

import (
	"context"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"course-guard/internal/logging"
)

// HealthServiceName is the service name reported alongside the overall ("") status.
const HealthServiceName = "course_guard.v1.AccessGuard"

// ReadyFunc reports readiness; nil means ready.
type ReadyFunc func(ctx context.Context) error

// NewGRPCServer returns a gRPC server exposing grpc.health.v1 and reflection, instrumented with OTel.
// The health server starts NOT_SERVING until WatchReadiness reports otherwise.
func NewGRPCServer() (*grpc.Server, *health.Server) {
	s := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	hs := health.NewServer()
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(HealthServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthpb.RegisterHealthServer(s, hs)
	reflection.Register(s)
	return s, hs
}

// WatchReadiness runs ready every interval and mirrors the result into hs until ctx is done.
// On return every service is marked NOT_SERVING.
func WatchReadiness(ctx context.Context, hs *health.Server, ready ReadyFunc, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if ready != nil {
			if err := ready(ctx); err != nil {
				status = healthpb.HealthCheckResponse_NOT_SERVING
				logging.Ctx(ctx).Warn().Err(err).Msg("server: readiness check failed")
			}
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(HealthServiceName, status)
	}

	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			update()
		}
	}
}
