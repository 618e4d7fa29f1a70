package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records the guard's counters on the global MeterProvider.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	gateOutcomes  metric.Int64Counter
	registrations metric.Int64Counter
	sessions      metric.Int64Counter
}

// NewMetrics creates the counters from the global MeterProvider. Call after Providers.SetGlobal.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(instrumentationName)
	gate, err := meter.Int64Counter("gate.outcomes", metric.WithDescription("Access gate evaluations by terminal state"))
	if err != nil {
		return nil, err
	}
	reg, err := meter.Int64Counter("device.registrations", metric.WithDescription("New devices registered"))
	if err != nil {
		return nil, err
	}
	sess, err := meter.Int64Counter("session.creations", metric.WithDescription("Single sessions created"))
	if err != nil {
		return nil, err
	}
	return &Metrics{gateOutcomes: gate, registrations: reg, sessions: sess}, nil
}

// GateOutcome counts one gate evaluation ending in state.
func (m *Metrics) GateOutcome(ctx context.Context, state string) {
	if m == nil {
		return
	}
	m.gateOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}

// DeviceRegistered counts one new device.
func (m *Metrics) DeviceRegistered(ctx context.Context) {
	if m == nil {
		return
	}
	m.registrations.Add(ctx, 1)
}

// SessionCreated counts one new single session.
func (m *Metrics) SessionCreated(ctx context.Context) {
	if m == nil {
		return
	}
	m.sessions.Add(ctx, 1)
}
