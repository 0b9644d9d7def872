package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/colloquy/pkg/api"
)

// RedisStore persists JSON-encoded snapshots in Redis under a configured
// key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a snapshot store backed by a Redis endpoint
func NewRedisStore(addr, prefix string, db int) *RedisStore {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Save(
	ctx context.Context, key string, snap *api.Snapshot,
) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(key), data, 0).Err()
}

func (s *RedisStore) Load(
	ctx context.Context, key string,
) (*api.Snapshot, error) {
	data, err := s.client.Get(ctx, s.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, err
	}
	snap := &api.Snapshot{}
	if err := json.Unmarshal(data, snap); err != nil {
		return nil, err
	}
	return snap, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.key(key)).Err()
}

// Close releases the underlying Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) key(key string) string {
	return s.prefix + ":snapshot:" + key
}
