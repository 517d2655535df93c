package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"price_watcher/internal/domain"
)

const listingColumns = `id, tracker_id, url, domain, title, current_price, is_available, last_checked_at, created_at`

type ListingStore struct {
	db *sqlx.DB
}

func NewListingStore(db *sqlx.DB) *ListingStore {
	return &ListingStore{db: db}
}

// GetByID returns nil when the listing does not exist.
func (s *ListingStore) GetByID(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.get(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1`, id)
}

// LockForUpdate reads the listing and holds its row lock until the
// surrounding transaction ends.
func (s *ListingStore) LockForUpdate(ctx context.Context, id int64) (*domain.Listing, error) {
	return s.get(ctx, `SELECT `+listingColumns+` FROM listings WHERE id = $1 FOR UPDATE`, id)
}

func (s *ListingStore) get(ctx context.Context, query string, id int64) (*domain.Listing, error) {
	var listing domain.Listing
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &listing, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &listing, nil
}

func (s *ListingStore) UpdateScrapeResult(
	ctx context.Context,
	id int64,
	price decimal.NullDecimal,
	isAvailable bool,
	checkedAt time.Time,
) (*domain.Listing, error) {
	query := `
		UPDATE listings
		SET current_price = $2,
			is_available = $3,
			last_checked_at = $4
		WHERE id = $1
		RETURNING ` + listingColumns

	var listing domain.Listing
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &listing, query, id, price, isAvailable, checkedAt)
	if err != nil {
		return nil, err
	}
	return &listing, nil
}
