package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("loaded", "rows", 3)
	assert.Contains(t, buf.String(), `"rows":3`)

	buf.Reset()
	New(&buf, "warn", "text").Info("hidden")
	assert.Empty(t, buf.String())
}

func TestFromContext_AddsIDs(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(New(&buf, "debug", "text"))
	t.Cleanup(func() { slog.SetDefault(prev) })

	ctx := context.WithValue(context.Background(), middleware.RequestIDKey, "req-1")
	ctx = WithSession(ctx, "sess-1")
	require.Equal(t, "sess-1", SessionFromContext(ctx))

	WithFields(ctx, "column", "name").Info("clean")
	out := buf.String()
	assert.Contains(t, out, "request_id=req-1")
	assert.Contains(t, out, "session_id=sess-1")
	assert.Contains(t, out, "column=name")
}

func TestFromContext_NoIDs(t *testing.T) {
	assert.Empty(t, contextAttrs(context.Background()))
	assert.Same(t, slog.Default(), FromContext(context.Background()))
}
