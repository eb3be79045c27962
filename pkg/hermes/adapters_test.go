package hermes

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlogAdapter_WritesFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelInfo})))

	logger.Warn(context.Background(), "Missing last update status", map[string]any{
		"function": "hello",
		"attempt":  3,
	})

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "WARN", line["level"])
	assert.Equal(t, "Missing last update status", line["msg"])
	assert.Equal(t, "hello", line["function"])
	assert.Equal(t, float64(3), line["attempt"])
}

func TestSlogAdapter_RespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewSlogAdapter(slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelWarn})))

	logger.Info(context.Background(), "suppressed", nil)
	assert.Zero(t, buf.Len())

	logger.Error(context.Background(), "kept", nil)
	assert.NotZero(t, buf.Len())
}
