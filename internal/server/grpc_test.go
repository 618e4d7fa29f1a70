package server

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

func status(t *testing.T, hs interface {
	Check(context.Context, *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error)
}, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if err != nil {
		t.Fatalf("Check(%q): %v", service, err)
	}
	return resp.GetStatus()
}

func TestNewGRPCServer_StartsNotServing(t *testing.T) {
	s, hs := NewGRPCServer()
	defer s.Stop()
	if got := status(t, hs, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("status = %v, want NOT_SERVING", got)
	}
	if _, ok := s.GetServiceInfo()["grpc.health.v1.Health"]; !ok {
		t.Error("health service not registered")
	}
}

func TestWatchReadiness(t *testing.T) {
	s, hs := NewGRPCServer()
	defer s.Stop()

	var failing atomic.Bool
	ready := func(context.Context) error {
		if failing.Load() {
			return errors.New("database down")
		}
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		WatchReadiness(ctx, hs, ready, 5*time.Millisecond)
		close(done)
	}()

	waitFor := func(want healthpb.HealthCheckResponse_ServingStatus) {
		t.Helper()
		deadline := time.Now().Add(time.Second)
		for time.Now().Before(deadline) {
			if status(t, hs, HealthServiceName) == want {
				return
			}
			time.Sleep(5 * time.Millisecond)
		}
		t.Fatalf("status never became %v", want)
	}

	waitFor(healthpb.HealthCheckResponse_SERVING)
	failing.Store(true)
	waitFor(healthpb.HealthCheckResponse_NOT_SERVING)
	failing.Store(false)
	waitFor(healthpb.HealthCheckResponse_SERVING)

	cancel()
	<-done
	if got := status(t, hs, ""); got != healthpb.HealthCheckResponse_NOT_SERVING {
		t.Errorf("after shutdown status = %v, want NOT_SERVING", got)
	}
}
