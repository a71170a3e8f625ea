// Package logger provides the zerolog-based application logger.
package logger

import (
	"context"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger is the service-scoped root logger.
var Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

// Init configures the root logger with the service name.
func Init(serviceName string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	Logger = zerolog.New(os.Stderr).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx returns the logger stored in ctx, enriched with the active
// trace id when a recording span is present. Falls back to the root
// logger on a bare context.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := zerolog.Ctx(ctx)
	if l.GetLevel() == zerolog.Disabled {
		l = &Logger
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		enriched := l.With().Str("trace_id", sc.TraceID().String()).Logger()
		return &enriched
	}
	return l
}

// WithContext stores l in ctx for retrieval via Ctx.
func WithContext(ctx context.Context, l zerolog.Logger) context.Context {
	return l.WithContext(ctx)
}
