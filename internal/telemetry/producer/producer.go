// Package producer defines the interface for publishing security events to a stream (e.g. Kafka).
package producer

import (
	"context"

	"course-guard/internal/telemetry"
)

// Producer emits security events. Callers use it best-effort: log and ignore errors.
type Producer interface {
	// Emit sends a single event. Implementations may block briefly; call through telemetry.EmitAsync from request paths.
	Emit(ctx context.Context, event *telemetry.Event) error
	// Close releases resources (e.g. Kafka writer). Safe to call if already closed.
	Close() error
}
