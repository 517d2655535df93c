package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SnapshotSource string

const (
	SourceManual SnapshotSource = "manual"
	SourceCron   SnapshotSource = "cron"
)

// ListingSnapshot is an append-only price/availability observation.
type ListingSnapshot struct {
	ID          int64               `db:"id" json:"id"`
	ListingID   int64               `db:"listing_id" json:"listingId"`
	Price       decimal.NullDecimal `db:"price" json:"price"`
	IsAvailable bool                `db:"is_available" json:"isAvailable"`
	Source      SnapshotSource      `db:"source" json:"source"`
	CreatedAt   time.Time           `db:"created_at" json:"createdAt"`
}

type EventType string

const (
	EventPriceDrop     EventType = "PRICE_DROP"
	EventPriceIncrease EventType = "PRICE_INCREASE"
	EventBackInStock   EventType = "BACK_IN_STOCK"
	EventOutOfStock    EventType = "OUT_OF_STOCK"
)

// PriceChange is the metadata attached to price events.
type PriceChange struct {
	OldPrice decimal.Decimal `json:"oldPrice"`
	NewPrice decimal.Decimal `json:"newPrice"`
}

// MarshalJSON writes both prices as JSON numbers.
func (p PriceChange) MarshalJSON() ([]byte, error) {
	return fmt.Appendf(nil, `{"oldPrice":%s,"newPrice":%s}`, p.OldPrice.String(), p.NewPrice.String()), nil
}

// ListingEvent is a fact derived from two consecutive observations.
type ListingEvent struct {
	ID        int64        `json:"id"`
	ListingID int64        `json:"listingId"`
	TrackerID int64        `json:"trackerId"`
	Type      EventType    `json:"eventType"`
	Metadata  *PriceChange `json:"metadata,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
}
