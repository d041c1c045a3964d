// Package logging defines the structured-logging interface used across the
// client and the mirror server, with adapters for log/slog and zap.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are interpreted as key–value pairs, e.g.:
//
//	log.Info(ctx, "image saved", "image_id", id, "sync_status", status)
type Logger interface {
	// Debug logs diagnostic detail such as individual queue replays.
	Debug(ctx context.Context, msg string, args ...any)

	// Info logs an informational message.
	Info(ctx context.Context, msg string, args ...any)

	// Warn logs a warning for degraded but non-fatal conditions, e.g. a failed
	// write-through that was queued for later.
	Warn(ctx context.Context, msg string, args ...any)

	// Error logs an error message for failures.
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given key–value pairs.
	With(args ...any) Logger
}
