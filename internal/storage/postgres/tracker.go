package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"price_watcher/internal/domain"
)

type TrackerStore struct {
	db *sqlx.DB
}

func NewTrackerStore(db *sqlx.DB) *TrackerStore {
	return &TrackerStore{db: db}
}

// ListWithListings loads every tracker together with its listings, both ordered by id.
func (s *TrackerStore) ListWithListings(ctx context.Context) ([]domain.Tracker, error) {
	exec := GetExecutor(ctx, s.db)

	var trackers []domain.Tracker
	err := sqlx.SelectContext(ctx, exec, &trackers,
		`SELECT id, title, lowest_available_price FROM trackers ORDER BY id`)
	if err != nil {
		return nil, err
	}
	if len(trackers) == 0 {
		return nil, nil
	}

	ids := make([]int64, len(trackers))
	byID := make(map[int64]int, len(trackers))
	for i, t := range trackers {
		ids[i] = t.ID
		byID[t.ID] = i
	}

	var listings []domain.Listing
	err = sqlx.SelectContext(ctx, exec, &listings,
		`SELECT `+listingColumns+` FROM listings WHERE tracker_id = ANY($1) ORDER BY tracker_id, id`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}

	for _, l := range listings {
		idx := byID[l.TrackerID]
		trackers[idx].Listings = append(trackers[idx].Listings, l)
	}

	return trackers, nil
}

// LockForUpdate returns nil when the tracker does not exist.
func (s *TrackerStore) LockForUpdate(ctx context.Context, id int64) (*domain.Tracker, error) {
	var tracker domain.Tracker
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &tracker,
		`SELECT id, title, lowest_available_price FROM trackers WHERE id = $1 FOR UPDATE`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tracker, nil
}

func (s *TrackerStore) UpdateLowestAvailablePrice(ctx context.Context, id int64, price decimal.Decimal) error {
	_, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		`UPDATE trackers SET lowest_available_price = $2 WHERE id = $1`, id, price)
	return err
}
