package store

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/shared"
)

type countingStore struct {
	inner SnapshotStore
	loads int
	saves int
}

func (s *countingStore) Load(ctx context.Context) (*pricing.Snapshot, error) {
	s.loads++
	return s.inner.Load(ctx)
}

func (s *countingStore) Save(ctx context.Context, snap *pricing.Snapshot) error {
	s.saves++
	return s.inner.Save(ctx, snap)
}

func newTestCache(t *testing.T) (*CachedStore, *countingStore, func()) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	counting := &countingStore{inner: NewMemoryStore()}
	cached := NewCachedStore(counting, client, time.Minute)
	return cached, counting, func() {
		_ = client.Close()
		mr.Close()
	}
}

func testSnapshot(t *testing.T) *pricing.Snapshot {
	t.Helper()
	snap, err := pricing.BuildSnapshot([]pricing.InputRecord{
		{ID: "p1", Description: "Amoxicillin 500mg", UsageVolume: 120, AvgCost: 10, NextCost: 9.5, CurrentPrice: 13,
			CompetitorPrices: map[string]float64{pricing.PrimaryCompetitor: 12}},
	}, pricing.DefaultRuleConfig())
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

func TestCachedStoreLoadPopulatesCache(t *testing.T) {
	cached, counting, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	snap := testSnapshot(t)
	if err := cached.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}

	first, err := cached.Load(ctx)
	if err != nil {
		t.Fatalf("first load: %v", err)
	}
	if first.Version != snap.Version {
		t.Fatalf("version = %q, want %q", first.Version, snap.Version)
	}
	if counting.loads != 1 {
		t.Fatalf("inner loads = %d, want 1", counting.loads)
	}

	second, err := cached.Load(ctx)
	if err != nil {
		t.Fatalf("second load: %v", err)
	}
	if second.Version != snap.Version {
		t.Fatalf("cached version = %q, want %q", second.Version, snap.Version)
	}
	if counting.loads != 1 {
		t.Fatalf("inner loads after cache hit = %d, want 1", counting.loads)
	}
}

func TestCachedStoreSaveInvalidates(t *testing.T) {
	cached, counting, cleanup := newTestCache(t)
	defer cleanup()
	ctx := context.Background()

	first := testSnapshot(t)
	if err := cached.Save(ctx, first); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := cached.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}

	second := first.Clone()
	second.NextVersion(time.Now().UTC().Add(time.Second))
	if err := cached.Save(ctx, second); err != nil {
		t.Fatalf("save second: %v", err)
	}

	got, err := cached.Load(ctx)
	if err != nil {
		t.Fatalf("load after save: %v", err)
	}
	if got.Version != second.Version {
		t.Fatalf("version = %q, want %q after invalidation", got.Version, second.Version)
	}
	if counting.saves != 2 {
		t.Fatalf("inner saves = %d, want 2", counting.saves)
	}
}

func TestCachedStoreEmpty(t *testing.T) {
	cached, _, cleanup := newTestCache(t)
	defer cleanup()

	_, err := cached.Load(context.Background())
	if shared.Kind(err) != shared.KindNotFound {
		t.Fatalf("kind = %v, want not found", shared.Kind(err))
	}
}
