// Package logging configures the process-wide zerolog logger and derives request-scoped loggers
// carrying the active OpenTelemetry trace and span ids.
package logging

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Setup builds the logger from a level name and output mode, installs it as the global zerolog logger, and returns it.
// Unknown level names fall back to info.
func Setup(level string, pretty bool) zerolog.Logger {
	l := New(os.Stderr, level, pretty)
	log.Logger = l
	zerolog.DefaultContextLogger = &log.Logger
	return l
}

// New returns a logger writing to w. pretty selects the human-readable console writer.
func New(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}

// Ctx returns the logger attached to ctx (or the global one) with trace_id and span_id added when ctx carries a valid span.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	span := trace.SpanFromContext(ctx).SpanContext()
	if !span.IsValid() {
		return l
	}
	withTrace := l.With().
		Str("trace_id", span.TraceID().String()).
		Str("span_id", span.SpanID().String()).
		Logger()
	return &withTrace
}
