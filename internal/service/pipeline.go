package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"price_watcher/internal/changes"
	"price_watcher/internal/domain"
)

// Pipeline runs fetch, extract, detect and persist for one listing.
type Pipeline struct {
	fetcher   Fetcher
	extractor Extractor
	listings  ListingStore
	trackers  TrackerStore
	snapshots SnapshotStore
	events    EventStore
	txManager TransactionManager
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewPipeline(
	fetcher Fetcher,
	extractor Extractor,
	listings ListingStore,
	trackers TrackerStore,
	snapshots SnapshotStore,
	events EventStore,
	txManager TransactionManager,
	publisher Publisher,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:   fetcher,
		extractor: extractor,
		listings:  listings,
		trackers:  trackers,
		snapshots: snapshots,
		events:    events,
		txManager: txManager,
		publisher: publisher,
		logger:    logger.With("component", "pipeline"),
		now:       time.Now,
	}
}

// Scrape fetches the listing page and extracts a normalized record.
func (p *Pipeline) Scrape(ctx context.Context, listing *domain.Listing) (domain.ScrapedData, error) {
	html, err := p.fetcher.Fetch(ctx, listing.URL)
	if err != nil {
		return domain.ScrapedData{}, err
	}
	return p.extractor.Extract(html), nil
}

// Persist records a scrape in one transaction: listing update, tracker
// aggregate, snapshot and derived events. Committed events are then
// published best-effort.
func (p *Pipeline) Persist(
	ctx context.Context,
	listingID int64,
	data domain.ScrapedData,
	source domain.SnapshotSource,
) (*domain.Listing, error) {
	now := p.now().UTC()

	var (
		updated *domain.Listing
		events  []domain.ListingEvent
	)

	err := p.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		// the listing row lock serializes writers of this listing's history
		current, err := p.listings.LockForUpdate(txCtx, listingID)
		if err != nil {
			return fmt.Errorf("lock listing: %w", err)
		}
		if current == nil {
			return ErrListingNotFound
		}

		previous, err := p.snapshots.Latest(txCtx, listingID)
		if err != nil {
			return fmt.Errorf("load latest snapshot: %w", err)
		}

		price := data.Price
		if !price.Valid {
			price = current.CurrentPrice
		}

		updated, err = p.listings.UpdateScrapeResult(txCtx, listingID, price, data.IsAvailable, now)
		if err != nil {
			return fmt.Errorf("update listing: %w", err)
		}

		if data.IsAvailable && data.Price.Valid {
			if err := p.lowerTrackerPrice(txCtx, current.TrackerID, data); err != nil {
				return err
			}
		}

		snap := &domain.ListingSnapshot{
			ListingID:   listingID,
			Price:       price,
			IsAvailable: data.IsAvailable,
			Source:      source,
			CreatedAt:   now,
		}
		if err := p.snapshots.Create(txCtx, snap); err != nil {
			return fmt.Errorf("create snapshot: %w", err)
		}

		events = changes.Detect(data, previous)
		for i := range events {
			events[i].ListingID = listingID
			events[i].TrackerID = current.TrackerID
			events[i].CreatedAt = now
		}
		if err := p.events.CreateBatch(txCtx, events); err != nil {
			return fmt.Errorf("create events: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	p.publish(ctx, events)

	return updated, nil
}

func (p *Pipeline) lowerTrackerPrice(ctx context.Context, trackerID int64, data domain.ScrapedData) error {
	tracker, err := p.trackers.LockForUpdate(ctx, trackerID)
	if err != nil {
		return fmt.Errorf("lock tracker: %w", err)
	}
	if tracker == nil {
		return fmt.Errorf("tracker %d not found", trackerID)
	}

	lowest, changed := changes.LowerAggregate(tracker.LowestAvailablePrice, data.Price, data.IsAvailable)
	if !changed {
		return nil
	}

	if err := p.trackers.UpdateLowestAvailablePrice(ctx, trackerID, lowest); err != nil {
		return fmt.Errorf("update tracker lowest price: %w", err)
	}
	return nil
}

func (p *Pipeline) publish(ctx context.Context, events []domain.ListingEvent) {
	if p.publisher == nil {
		return
	}
	for i := range events {
		if err := p.publisher.Publish(ctx, &events[i]); err != nil {
			p.logger.Warn("failed to publish event",
				"listing_id", events[i].ListingID,
				"event_type", events[i].Type,
				"error", err,
			)
		}
	}
}

// RefreshListing runs the whole pipeline for one listing and surfaces any failure.
func (p *Pipeline) RefreshListing(ctx context.Context, listingID int64) (*domain.Listing, error) {
	listing, err := p.listings.GetByID(ctx, listingID)
	if err != nil {
		return nil, &ListingError{ListingID: listingID, Stage: StageLoad, Err: err}
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}

	data, err := p.Scrape(ctx, listing)
	if err != nil {
		return nil, &ListingError{ListingID: listingID, Stage: StageFetch, Err: err}
	}

	updated, err := p.Persist(ctx, listingID, data, domain.SourceManual)
	if errors.Is(err, ErrListingNotFound) {
		return nil, err
	}
	if err != nil {
		return nil, &ListingError{ListingID: listingID, Stage: StagePersist, Err: err}
	}

	p.logger.Info("listing refreshed",
		"listing_id", listingID,
		"price", updated.CurrentPrice,
		"is_available", updated.IsAvailable,
	)

	return updated, nil
}

// Snapshots returns the listing's history, oldest first.
func (p *Pipeline) Snapshots(ctx context.Context, listingID int64) ([]domain.ListingSnapshot, error) {
	return p.snapshots.ListByListingID(ctx, listingID)
}

// Events returns the listing's events, newest first.
func (p *Pipeline) Events(ctx context.Context, listingID int64) ([]domain.ListingEvent, error) {
	return p.events.ListByListingID(ctx, listingID)
}
