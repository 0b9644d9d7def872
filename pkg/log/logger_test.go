package log_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/colloquy/pkg/log"
)

func TestNewDefaultsToInfo(t *testing.T) {
	logger := log.New("runtime")
	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelInfo))
	assert.False(t, logger.Enabled(ctx, slog.LevelDebug))
}

func TestNewWithLevel(t *testing.T) {
	logger := log.NewWithLevel("session", slog.LevelWarn)
	ctx := context.Background()
	assert.True(t, logger.Enabled(ctx, slog.LevelError))
	assert.False(t, logger.Enabled(ctx, slog.LevelInfo))
}

func TestWithSession(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, nil))
	log.WithSession(base, "session-1").Info("Tick complete")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "session-1", rec["session"])
	assert.Equal(t, "Tick complete", rec["msg"])
}
