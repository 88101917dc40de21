package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pricedeck/pricedeck/internal/platform/db"
	"github.com/pricedeck/pricedeck/internal/pricing"
	"github.com/pricedeck/pricedeck/internal/shared"
)

// keepVersions bounds the version history retained per dataset.
const keepVersions = 50

// PostgresStore persists snapshots as versioned JSONB rows; Load returns the
// most recent version.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore constructs the store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Load fetches the latest snapshot version.
func (s *PostgresStore) Load(ctx context.Context) (*pricing.Snapshot, error) {
	var payload []byte
	err := s.pool.QueryRow(ctx, `SELECT payload FROM pricing_snapshots ORDER BY created_at DESC, id DESC LIMIT 1`).Scan(&payload)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	var snap pricing.Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return &snap, nil
}

// Save appends the snapshot as a new version row and prunes history beyond
// the retention bound, atomically.
func (s *PostgresStore) Save(ctx context.Context, snap *pricing.Snapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return db.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO pricing_snapshots (version, dataset, payload, created_at)
VALUES ($1, $2, $3, $4)`, snap.Version, snap.Dataset, payload, snap.CreatedAt); err != nil {
			return fmt.Errorf("save snapshot: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM pricing_snapshots
WHERE dataset = $1 AND id NOT IN (
    SELECT id FROM pricing_snapshots WHERE dataset = $1 ORDER BY created_at DESC, id DESC LIMIT $2
)`, snap.Dataset, keepVersions); err != nil {
			return fmt.Errorf("prune snapshots: %w", err)
		}
		return nil
	})
}
