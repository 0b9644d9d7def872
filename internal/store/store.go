// Package store persists serialized flow-instance state. Because suspended
// instances carry an explicit continuation index rather than a captured
// stack, a snapshot taken between ticks fully describes the runtime for
// inspection and replay tooling
package store

import (
	"context"
	"errors"

	"github.com/kode4food/colloquy/pkg/api"
)

// Store saves and loads tick snapshots under string keys, usually one key
// per conversation or session
type Store interface {
	Save(ctx context.Context, key string, snap *api.Snapshot) error
	Load(ctx context.Context, key string) (*api.Snapshot, error)
	Delete(ctx context.Context, key string) error
}

// ErrNotFound is returned when no snapshot exists under a key
var ErrNotFound = errors.New("snapshot not found")
