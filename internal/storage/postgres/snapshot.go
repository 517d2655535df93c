package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"price_watcher/internal/domain"
)

type SnapshotStore struct {
	db *sqlx.DB
}

func NewSnapshotStore(db *sqlx.DB) *SnapshotStore {
	return &SnapshotStore{db: db}
}

// Latest returns the most recent snapshot of a listing, or nil if it has none.
func (s *SnapshotStore) Latest(ctx context.Context, listingID int64) (*domain.ListingSnapshot, error) {
	query := `
		SELECT id, listing_id, price, is_available, source, created_at
		FROM listing_snapshots
		WHERE listing_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1`

	var snap domain.ListingSnapshot
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &snap, query, listingID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Create inserts the snapshot and fills in its id.
func (s *SnapshotStore) Create(ctx context.Context, snap *domain.ListingSnapshot) error {
	query := `
		INSERT INTO listing_snapshots (listing_id, price, is_available, source, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	return GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		snap.ListingID,
		snap.Price,
		snap.IsAvailable,
		snap.Source,
		snap.CreatedAt,
	).Scan(&snap.ID)
}

func (s *SnapshotStore) ListByListingID(ctx context.Context, listingID int64) ([]domain.ListingSnapshot, error) {
	query := `
		SELECT id, listing_id, price, is_available, source, created_at
		FROM listing_snapshots
		WHERE listing_id = $1
		ORDER BY created_at ASC, id ASC`

	snaps := []domain.ListingSnapshot{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &snaps, query, listingID)
	return snaps, err
}
