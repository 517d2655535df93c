package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"price_watcher/internal/domain"
)

type EventStore struct {
	db *sqlx.DB
}

func NewEventStore(db *sqlx.DB) *EventStore {
	return &EventStore{db: db}
}

// CreateBatch inserts all events in one statement and fills in their ids.
func (s *EventStore) CreateBatch(ctx context.Context, events []domain.ListingEvent) error {
	if len(events) == 0 {
		return nil
	}

	var sb strings.Builder
	sb.WriteString("INSERT INTO listing_events (listing_id, tracker_id, event_type, metadata, created_at) VALUES ")
	const cols = 5
	args := make([]interface{}, 0, len(events)*cols)

	for i, e := range events {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString("(")
		for c := 1; c <= cols; c++ {
			if c > 1 {
				sb.WriteString(", ")
			}
			sb.WriteString("$")
			sb.WriteString(strconv.Itoa(i*cols + c))
		}
		sb.WriteString(")")

		metadata, err := encodeMetadata(e.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		args = append(args, e.ListingID, e.TrackerID, string(e.Type), metadata, e.CreatedAt)
	}
	sb.WriteString(" RETURNING id")

	rows, err := GetExecutor(ctx, s.db).QueryxContext(ctx, sb.String(), args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	// rows come back in VALUES order
	for i := 0; rows.Next(); i++ {
		if err := rows.Scan(&events[i].ID); err != nil {
			return err
		}
	}
	return rows.Err()
}

type eventRow struct {
	ID        int64              `db:"id"`
	ListingID int64              `db:"listing_id"`
	TrackerID int64              `db:"tracker_id"`
	EventType string             `db:"event_type"`
	Metadata  types.NullJSONText `db:"metadata"`
	CreatedAt time.Time          `db:"created_at"`
}

// ListByListingID returns the listing's events, newest first.
func (s *EventStore) ListByListingID(ctx context.Context, listingID int64) ([]domain.ListingEvent, error) {
	query := `
		SELECT id, listing_id, tracker_id, event_type, metadata, created_at
		FROM listing_events
		WHERE listing_id = $1
		ORDER BY created_at DESC, id DESC`

	var rows []eventRow
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &rows, query, listingID); err != nil {
		return nil, err
	}

	events := make([]domain.ListingEvent, len(rows))
	for i, r := range rows {
		events[i] = domain.ListingEvent{
			ID:        r.ID,
			ListingID: r.ListingID,
			TrackerID: r.TrackerID,
			Type:      domain.EventType(r.EventType),
			CreatedAt: r.CreatedAt,
		}
		if r.Metadata.Valid {
			var change domain.PriceChange
			if err := r.Metadata.Unmarshal(&change); err != nil {
				return nil, fmt.Errorf("decode metadata of event %d: %w", r.ID, err)
			}
			events[i].Metadata = &change
		}
	}
	return events, nil
}

func encodeMetadata(change *domain.PriceChange) (types.NullJSONText, error) {
	if change == nil {
		return types.NullJSONText{}, nil
	}
	data, err := json.Marshal(change)
	if err != nil {
		return types.NullJSONText{}, err
	}
	return types.NullJSONText{JSONText: types.JSONText(data), Valid: true}, nil
}
