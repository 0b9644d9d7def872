package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/kode4food/colloquy/pkg/api"
)

// MemoryStore keeps JSON-encoded snapshots in process memory. Encoding
// through JSON keeps its behavior identical to the Redis store
type MemoryStore struct {
	mu    sync.RWMutex
	snaps map[string][]byte
}

// NewMemoryStore creates an empty in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snaps: map[string][]byte{}}
}

func (s *MemoryStore) Save(
	_ context.Context, key string, snap *api.Snapshot,
) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[key] = data
	return nil
}

func (s *MemoryStore) Load(
	_ context.Context, key string,
) (*api.Snapshot, error) {
	s.mu.RLock()
	data, ok := s.snaps[key]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	snap := &api.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, key)
	return nil
}
