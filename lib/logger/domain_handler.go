package logger

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// DomainLogHandler wraps an slog.Handler and additionally writes records
// that carry a "domain" attribute to that domain's chdriver.log file, so
// each domain keeps its own validation/reconciliation history.
//
// Shared state across WithAttrs/WithGroup follows the slog handler guide:
// https://pkg.go.dev/golang.org/x/example/slog-handler-guide
type DomainLogHandler struct {
	slog.Handler
	logPathFunc func(name string) string // returns the log path for a domain, "" to skip
	preAttrs    []slog.Attr              // attrs bound via WithAttrs (needed to find "domain")
}

// NewDomainLogHandler creates a handler that wraps the given handler and
// mirrors domain-related records to per-domain log files.
func NewDomainLogHandler(wrapped slog.Handler, logPathFunc func(name string) string) *DomainLogHandler {
	return &DomainLogHandler{
		Handler:     wrapped,
		logPathFunc: logPathFunc,
	}
}

// Handle passes the record to the wrapped handler, then mirrors it to the
// domain's log file when a "domain" attribute is present.
func (h *DomainLogHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := h.Handler.Handle(ctx, r); err != nil {
		return err
	}

	var domain string
	for _, a := range h.preAttrs {
		if a.Key == "domain" {
			domain = a.Value.String()
			break
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == "domain" {
			domain = a.Value.String()
			return false
		}
		return true
	})

	if domain != "" {
		h.writeToDomainLog(domain, r)
	}

	return nil
}

// writeToDomainLog appends one formatted line to the domain's log file.
// The file is opened and closed per write so no handles are cached.
func (h *DomainLogHandler) writeToDomainLog(domain string, r slog.Record) {
	logPath := h.logPathFunc(domain)
	if logPath == "" {
		return
	}

	// Only mirror for domains that already have a state directory. A
	// "domain" attribute on a record for a not-yet-created domain must
	// not leave orphan directories behind.
	domainDir := filepath.Dir(logPath)
	if _, err := os.Stat(domainDir); os.IsNotExist(err) {
		return
	}

	line := fmt.Sprintf("%s %s %s", r.Time.Format(time.RFC3339), r.Level.String(), r.Message)
	for _, a := range h.preAttrs {
		if a.Key != "domain" {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		if a.Key != "domain" {
			line += fmt.Sprintf(" %s=%v", a.Key, a.Value)
		}
		return true
	})
	line += "\n"

	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		// Package-level slog, not our handler, to avoid recursion.
		slog.Warn("failed to open domain log file", "path", logPath, "error", err)
		return
	}
	defer f.Close()

	if _, err := f.WriteString(line); err != nil {
		slog.Warn("failed to write domain log file", "path", logPath, "error", err)
	}
}

// Enabled reports whether the handler handles records at the given level.
func (h *DomainLogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.Handler.Enabled(ctx, level)
}

// WithAttrs returns a new handler with the given attributes, tracking them
// locally so "domain" is found even when bound via With().
func (h *DomainLogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	newPreAttrs := make([]slog.Attr, len(h.preAttrs), len(h.preAttrs)+len(attrs))
	copy(newPreAttrs, h.preAttrs)
	newPreAttrs = append(newPreAttrs, attrs...)

	return &DomainLogHandler{
		Handler:     h.Handler.WithAttrs(attrs),
		logPathFunc: h.logPathFunc,
		preAttrs:    newPreAttrs,
	}
}

// WithGroup returns a new handler with the given group name. Domain names
// are expected at the top level, not nested in groups.
func (h *DomainLogHandler) WithGroup(name string) slog.Handler {
	return &DomainLogHandler{
		Handler:     h.Handler.WithGroup(name),
		logPathFunc: h.logPathFunc,
		preAttrs:    h.preAttrs,
	}
}
