package telemetry

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// emitTimeout is the max time allowed for a single async emit. Used by EmitAsync and by ShutdownDrainDuration.
const emitTimeout = 5 * time.Second

// ShutdownDrainDuration is how long to wait after the servers stop before shutting down OTel providers
// and the Kafka producer, so in-flight async emits have time to complete. Must be >= emitTimeout.
const ShutdownDrainDuration = emitTimeout

// EmitAsync runs Emit in a goroutine with a short timeout so the caller is not blocked.
// Use from request paths for fire-and-forget, best-effort events; errors are logged.
//
// emitter and event may be nil; EmitAsync returns immediately without starting a goroutine.
// The goroutine uses a context detached from ctx so request cancellation does not abort the emit,
// while values such as the active span are kept.
func EmitAsync(emitter EventEmitter, ctx context.Context, event *Event) {
	if emitter == nil || event == nil {
		return
	}
	base := context.WithoutCancel(ctx)
	go func() {
		emitCtx, cancel := context.WithTimeout(base, emitTimeout)
		defer cancel()
		if err := emitter.Emit(emitCtx, event); err != nil {
			log.Warn().Err(err).Str("event_type", event.EventType).Msg("telemetry: async emit failed")
		}
	}()
}
