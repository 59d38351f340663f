// Package logger provides structured logging carried through context,
// with optional per-domain log files and OpenTelemetry log bridging.
package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const loggerKey contextKey = "logger"

// AddToContext adds a logger to the context
func AddToContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or returns default
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// WithDomain returns a logger bound to a domain name. Records emitted
// through it carry the "domain" attribute that DomainLogHandler uses to
// mirror them into the domain's own log file.
func WithDomain(log *slog.Logger, name string) *slog.Logger {
	return log.With("domain", name)
}
