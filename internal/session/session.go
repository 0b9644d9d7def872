// Package session ties one conversation to a runtime and its snapshot
// persistence. A session owns a single-threaded runtime; callers that share
// a session across goroutines must serialize access themselves
package session

import (
	"context"
	"log/slog"

	"github.com/kode4food/colloquy/internal/config"
	"github.com/kode4food/colloquy/internal/runtime"
	"github.com/kode4food/colloquy/internal/store"
	"github.com/kode4food/colloquy/pkg/api"
	"github.com/kode4food/colloquy/pkg/log"
	"github.com/kode4food/colloquy/pkg/value"
)

// Session is the host boundary around a runtime: it drives ticks, and when
// snapshot persistence is enabled it saves the runtime's state under the
// session key after every tick
type Session struct {
	Key    string
	rt     *runtime.Runtime
	store  store.Store
	logger *slog.Logger
}

// New creates a session configured per the loaded configuration. Snapshot
// persistence, when enabled, goes to the configured Redis endpoint
func New(key string, cfg *config.Config, logger *slog.Logger) *Session {
	var st store.Store
	if cfg.Snapshot.Enabled {
		st = store.NewRedisStore(
			cfg.Snapshot.Addr, cfg.Snapshot.Prefix, cfg.Snapshot.DB)
	}
	return NewWithStore(key, cfg, logger, st)
}

// NewWithStore creates a session with an explicit snapshot store; a nil
// store disables persistence
func NewWithStore(
	key string, cfg *config.Config, logger *slog.Logger, st store.Store,
) *Session {
	if logger == nil {
		logger = log.NewWithLevel("session", cfg.SlogLevel())
	}
	logger = log.WithSession(logger, key)
	opts := cfg.RuntimeOptions()
	opts.Logger = logger
	return &Session{
		Key:    key,
		rt:     runtime.New(opts),
		store:  st,
		logger: logger,
	}
}

// Runtime exposes the underlying runtime for registration and inspection
func (s *Session) Runtime() *runtime.Runtime {
	return s.rt
}

// Register adds flow definitions to the session's runtime
func (s *Session) Register(flows ...*runtime.Flow) {
	s.rt.Register(flows...)
}

// StartFlow starts a top-level flow instance and persists the tick
func (s *Session) StartFlow(
	ctx context.Context, id api.FlowID, args map[string]value.Value,
) ([]runtime.Outbound, *runtime.FlowInstance, error) {
	out, inst, err := s.rt.StartFlow(id, args)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, nil, err
	}
	return out, inst, nil
}

// ActivateFlow starts an activated flow instance and persists the tick
func (s *Session) ActivateFlow(
	ctx context.Context, id api.FlowID, args map[string]value.Value,
) ([]runtime.Outbound, *runtime.FlowInstance, error) {
	out, inst, err := s.rt.ActivateFlow(id, args)
	if err != nil {
		return nil, nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, nil, err
	}
	return out, inst, nil
}

// SubmitEvent drives one scheduling tick and persists the result
func (s *Session) SubmitEvent(
	ctx context.Context, ev *runtime.Event,
) ([]runtime.Outbound, error) {
	out, err := s.rt.SubmitEvent(ev)
	if err != nil {
		return nil, err
	}
	if err := s.persist(ctx); err != nil {
		return nil, err
	}
	return out, nil
}

// LatestSnapshot loads the last persisted snapshot for the session key
func (s *Session) LatestSnapshot(
	ctx context.Context,
) (*api.Snapshot, error) {
	if s.store == nil {
		return nil, store.ErrNotFound
	}
	return s.store.Load(ctx, s.Key)
}

// Close releases the snapshot store connection if it holds one
func (s *Session) Close() error {
	if c, ok := s.store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

func (s *Session) persist(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Save(ctx, s.Key, s.rt.Snapshot()); err != nil {
		s.logger.Error("Snapshot save failed", log.Error(err))
		return err
	}
	return nil
}
