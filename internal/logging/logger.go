// Package logging configures log/slog for the server and the CLI.
//
// Request-scoped loggers pick up chi's request id and, once a handler has
// resolved one, the id of the table session being worked on.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
)

type sessionKey struct{}

// Setup installs the default slog logger writing to stdout.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
func Setup(level, format string) {
	slog.SetDefault(New(os.Stdout, level, format))
}

// New builds a logger writing to w. The CLI passes stderr so that reports
// on stdout stay machine readable. Debug loggers record the source line.
func New(w io.Writer, level, format string) *slog.Logger {
	lvl := parseLevel(level)
	opts := &slog.HandlerOptions{Level: lvl, AddSource: lvl == slog.LevelDebug}

	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// WithSession stores a table session id in ctx for FromContext.
func WithSession(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, sessionKey{}, id)
}

// SessionFromContext returns the session id stored by WithSession.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// contextAttrs lists the ids ctx carries as logger attributes.
func contextAttrs(ctx context.Context) []any {
	var attrs []any
	if id := middleware.GetReqID(ctx); id != "" {
		attrs = append(attrs, slog.String("request_id", id))
	}
	if id := SessionFromContext(ctx); id != "" {
		attrs = append(attrs, slog.String("session_id", id))
	}
	return attrs
}

// FromContext returns the default logger with request_id and session_id
// attached when ctx carries them.
//
//	logging.FromContext(r.Context()).Info("export", "rows", n)
func FromContext(ctx context.Context) *slog.Logger {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		return slog.Default().With(attrs...)
	}
	return slog.Default()
}

// WithFields is FromContext plus extra key/value pairs.
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
