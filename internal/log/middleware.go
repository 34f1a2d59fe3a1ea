package log

import (
	"context"
	"log/slog"
)

// ContextKey type for context keys
type ContextKey string

const (
	// LoggerContextKey is the context key for the logger
	LoggerContextKey ContextKey = "logger"
)

// NewContext returns a copy of ctx carrying logger
func NewContext(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, LoggerContextKey, logger)
}

// FromContext extracts a logger from the request context
func FromContext(ctx context.Context) *Logger {
	if logger, ok := ctx.Value(LoggerContextKey).(*Logger); ok {
		return logger
	}
	return &Logger{
		Logger:    slog.Default(),
		base:      slog.Default().Handler(),
		component: "unknown",
	}
}

// LogRender records a view render with its selection and outcome
func LogRender(ctx context.Context, report string, year int, charts int, durationMs int64) {
	fields := NewFields().
		WithSelection(report, year).
		WithOperation(OpRender)
	fields["charts"] = charts
	fields[FieldDuration] = durationMs

	level := slog.LevelDebug
	if charts == 0 {
		level = slog.LevelInfo
	}
	FromContext(ctx).Log(ctx, level, "View rendered", fields.ToSlice()...)
}
