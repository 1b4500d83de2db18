package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Levels(t *testing.T) {
	ctx := context.Background()

	assert.True(t, New(&bytes.Buffer{}, "debug", "text").Enabled(ctx, slog.LevelDebug))
	assert.False(t, New(&bytes.Buffer{}, "", "text").Enabled(ctx, slog.LevelDebug))
	assert.True(t, New(&bytes.Buffer{}, "", "text").Enabled(ctx, slog.LevelInfo))
	assert.False(t, New(&bytes.Buffer{}, "warn", "json").Enabled(ctx, slog.LevelInfo))
	assert.False(t, New(&bytes.Buffer{}, "error", "json").Enabled(ctx, slog.LevelWarn))
}

func TestNew_JSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "info", "json").Info("hello", "device", "abc")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "abc", entry["device"])
}

func TestL_AddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithLogger(context.Background(), New(&buf, "info", "json"))
	ctx = WithRequestID(ctx, "req-1")

	L(ctx).Info("handled")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestContextDefaults(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, RequestID(ctx))
	assert.Same(t, slog.Default(), FromContext(ctx))

	ctx = WithRequestID(ctx, "first")
	ctx = WithRequestID(ctx, "second")
	assert.Equal(t, "second", RequestID(ctx))
}
