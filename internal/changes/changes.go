// Package changes derives listing events from consecutive observations.
package changes

import (
	"github.com/shopspring/decimal"

	"price_watcher/internal/domain"
)

// Detect compares a fresh record with the most recent stored snapshot.
// Without a previous snapshot there is no baseline and nothing is emitted.
// Price and availability are evaluated independently, so at most one event
// of each kind is returned. Returned events carry only Type and Metadata.
func Detect(current domain.ScrapedData, previous *domain.ListingSnapshot) []domain.ListingEvent {
	if previous == nil {
		return nil
	}

	var events []domain.ListingEvent

	if current.Price.Valid && previous.Price.Valid {
		change := &domain.PriceChange{OldPrice: previous.Price.Decimal, NewPrice: current.Price.Decimal}
		switch current.Price.Decimal.Cmp(previous.Price.Decimal) {
		case -1:
			events = append(events, domain.ListingEvent{Type: domain.EventPriceDrop, Metadata: change})
		case 1:
			events = append(events, domain.ListingEvent{Type: domain.EventPriceIncrease, Metadata: change})
		}
	}

	switch {
	case current.IsAvailable && !previous.IsAvailable:
		events = append(events, domain.ListingEvent{Type: domain.EventBackInStock})
	case !current.IsAvailable && previous.IsAvailable:
		events = append(events, domain.ListingEvent{Type: domain.EventOutOfStock})
	}

	return events
}

// LowerAggregate applies a scrape to a tracker's lowest available price.
// Only an available, priced observation can move the aggregate, and only
// downwards; an unset aggregate is seeded with the first such price.
// It returns the new value and whether it differs from stored.
func LowerAggregate(stored, price decimal.NullDecimal, available bool) (decimal.Decimal, bool) {
	if !available || !price.Valid {
		return stored.Decimal, false
	}
	if !stored.Valid || price.Decimal.LessThan(stored.Decimal) {
		return price.Decimal, true
	}
	return stored.Decimal, false
}
