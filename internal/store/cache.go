package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pricedeck/pricedeck/internal/pricing"
)

const cacheVersionKey = "pricing:snapshot:version"

// CachedStore decorates a SnapshotStore with a Redis read-through cache.
// Every save bumps a version counter so readers never observe a stale
// snapshot after a write.
type CachedStore struct {
	inner  SnapshotStore
	client *redis.Client
	ttl    time.Duration
}

// NewCachedStore wraps the inner store with Redis caching.
func NewCachedStore(inner SnapshotStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{inner: inner, client: client, ttl: ttl}
}

func (s *CachedStore) version(ctx context.Context) (int64, error) {
	ver, err := s.client.Get(ctx, cacheVersionKey).Int64()
	if err == redis.Nil {
		if err := s.client.Set(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (s *CachedStore) key(ver int64) string {
	return fmt.Sprintf("pricing:snapshot:%d", ver)
}

// Load returns the cached snapshot when present, falling back to the inner
// store and populating the cache.
func (s *CachedStore) Load(ctx context.Context) (*pricing.Snapshot, error) {
	if s.client == nil {
		return s.inner.Load(ctx)
	}
	ver, err := s.version(ctx)
	if err != nil {
		return s.inner.Load(ctx)
	}
	raw, err := s.client.Get(ctx, s.key(ver)).Bytes()
	if err == nil {
		var snap pricing.Snapshot
		if err := json.Unmarshal(raw, &snap); err == nil {
			return &snap, nil
		}
	}
	snap, err := s.inner.Load(ctx)
	if err != nil {
		return nil, err
	}
	if raw, err := json.Marshal(snap); err == nil {
		_ = s.client.Set(ctx, s.key(ver), raw, s.ttl).Err()
	}
	return snap, nil
}

// Save writes through to the inner store and bumps the cache version.
func (s *CachedStore) Save(ctx context.Context, snap *pricing.Snapshot) error {
	if err := s.inner.Save(ctx, snap); err != nil {
		return err
	}
	if s.client != nil {
		if err := s.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
			return err
		}
	}
	return nil
}
