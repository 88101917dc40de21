// Package store persists dataset snapshots. The workflow service only
// depends on the SnapshotStore contract; Postgres and Redis backed
// implementations live alongside an in-memory one used in tests and when no
// persistence is configured.
package store

import (
	"context"
	"sync"

	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/shared"
)

// SnapshotStore loads and saves the latest dataset snapshot.
type SnapshotStore interface {
	Load(ctx context.Context) (*pricing.Snapshot, error)
	Save(ctx context.Context, snap *pricing.Snapshot) error
}

// MemoryStore keeps the latest snapshot in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	snap *pricing.Snapshot
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the stored snapshot or shared.ErrNotFound.
func (s *MemoryStore) Load(ctx context.Context) (*pricing.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snap == nil {
		return nil, shared.ErrNotFound
	}
	return s.snap, nil
}

// Save replaces the stored snapshot.
func (s *MemoryStore) Save(ctx context.Context, snap *pricing.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snap = snap
	return nil
}
