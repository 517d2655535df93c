package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Listing is one tracked product page.
type Listing struct {
	ID            int64               `db:"id" json:"id"`
	TrackerID     int64               `db:"tracker_id" json:"trackerId"`
	URL           string              `db:"url" json:"url"`
	Domain        string              `db:"domain" json:"domain"`
	Title         string              `db:"title" json:"title"`
	CurrentPrice  decimal.NullDecimal `db:"current_price" json:"currentPrice"`
	IsAvailable   bool                `db:"is_available" json:"isAvailable"`
	LastCheckedAt *time.Time          `db:"last_checked_at" json:"lastCheckedAt"`
	CreatedAt     time.Time           `db:"created_at" json:"createdAt"`
}

// Tracker groups listings under one price-watch goal.
type Tracker struct {
	ID                   int64               `db:"id"`
	Title                string              `db:"title"`
	LowestAvailablePrice decimal.NullDecimal `db:"lowest_available_price"`
	Listings             []Listing           `db:"-"`
}

// ScrapedData is the normalized record produced by one extraction.
type ScrapedData struct {
	Title       string              `json:"title"`
	Price       decimal.NullDecimal `json:"price"`
	IsAvailable bool                `json:"isAvailable"`
}
