package otel

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestNewProviders_EmptyEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"", "   "} {
		providers, err := NewProviders(ctx, endpoint, "test-service", "", false)
		if err != nil {
			t.Fatalf("NewProviders(%q): %v", endpoint, err)
		}
		if providers.TracerProvider == nil || providers.MeterProvider == nil || providers.LoggerProvider == nil {
			t.Fatalf("providers should be non-nil: %+v", providers)
		}
		if err := providers.Shutdown(ctx); err != nil {
			t.Errorf("shutdown should be no-op for empty endpoint, got error: %v", err)
		}
	}
}

func TestNewProviders_InvalidEndpoint(t *testing.T) {
	ctx := context.Background()
	for _, endpoint := range []string{"://invalid", "http://[invalid", "http://"} {
		if _, err := NewProviders(ctx, endpoint, "test-service", "", false); err == nil {
			t.Errorf("NewProviders(%q) should return error", endpoint)
		}
	}
}

func TestParseEndpoint(t *testing.T) {
	testCases := []struct {
		name     string
		endpoint string
		override bool
		want     Target
	}{
		{"no scheme", "localhost:4317", false, Target{HostPort: "localhost:4317", Insecure: true}},
		{"http", "http://collector:4317", false, Target{HostPort: "collector:4317", Insecure: true}},
		{"https", "https://collector:4317", false, Target{HostPort: "collector:4317", Insecure: false}},
		{"https override", "https://collector:4317", true, Target{HostPort: "collector:4317", Insecure: true}},
		{"path ignored", "http://collector:4317/v1/traces", false, Target{HostPort: "collector:4317", Insecure: true}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ParseEndpoint(tc.endpoint, tc.override)
			if err != nil {
				t.Fatalf("ParseEndpoint: %v", err)
			}
			if got != tc.want {
				t.Errorf("ParseEndpoint(%q) = %+v, want %+v", tc.endpoint, got, tc.want)
			}
		})
	}
}

func TestSetGlobal_WithProviders(t *testing.T) {
	providers, err := NewProviders(context.Background(), "", "test-service", "test", false)
	if err != nil {
		t.Fatalf("NewProviders: %v", err)
	}
	providers.SetGlobal()
	if otel.GetTracerProvider() != providers.TracerProvider {
		t.Error("global TracerProvider should be the one from providers")
	}
	if otel.GetMeterProvider() != providers.MeterProvider {
		t.Error("global MeterProvider should be the one from providers")
	}
}
