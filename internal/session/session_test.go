package session_test

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kode4food/colloquy/internal/config"
	"github.com/kode4food/colloquy/internal/runtime"
	"github.com/kode4food/colloquy/internal/session"
	"github.com/kode4food/colloquy/internal/store"
	"github.com/kode4food/colloquy/pkg/api"
)

var greeting = &runtime.Flow{
	ID: "greeting",
	Elements: []runtime.Element{
		&runtime.Match{EventName: "UserGreeted"},
		&runtime.StartAction{Name: "say"},
	},
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSessionPersistsEachTick(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	s := session.NewWithStore(
		"session-1", config.NewDefaultConfig(), discard(), st)
	s.Register(greeting)

	_, _, err := s.StartFlow(ctx, "greeting", nil)
	require.NoError(t, err)

	snap, err := s.LatestSnapshot(ctx)
	require.NoError(t, err)
	require.Len(t, snap.Flows, 1)
	for _, rec := range snap.Flows {
		assert.Equal(t, api.FlowID("greeting"), rec.FlowID)
		assert.Equal(t, api.FlowWaiting, rec.Status)
	}

	_, err = s.SubmitEvent(ctx, runtime.NewEvent("UserGreeted", nil))
	require.NoError(t, err)

	snap, err = s.LatestSnapshot(ctx)
	require.NoError(t, err)
	for _, rec := range snap.Flows {
		assert.Equal(t, api.FlowFinished, rec.Status)
	}
}

func TestSessionWithoutStore(t *testing.T) {
	ctx := context.Background()
	s := session.NewWithStore(
		"session-1", config.NewDefaultConfig(), discard(), nil)
	s.Register(greeting)

	_, _, err := s.StartFlow(ctx, "greeting", nil)
	require.NoError(t, err)

	_, err = s.LatestSnapshot(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSessionRedisConfigured(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	cfg := config.NewDefaultConfig()
	cfg.Snapshot.Enabled = true
	cfg.Snapshot.Addr = mr.Addr()
	cfg.Snapshot.Prefix = "colloquy"

	s := session.New("session-9", cfg, discard())
	t.Cleanup(func() { _ = s.Close() })
	s.Register(greeting)

	_, _, err := s.StartFlow(ctx, "greeting", nil)
	require.NoError(t, err)
	assert.True(t, mr.Exists("colloquy:snapshot:session-9"))
}

func TestSessionUnknownFlow(t *testing.T) {
	s := session.NewWithStore(
		"session-1", config.NewDefaultConfig(), discard(), nil)

	_, _, err := s.StartFlow(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, runtime.ErrUnknownFlow)
}
