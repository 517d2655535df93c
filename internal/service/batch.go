package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"price_watcher/internal/config"
	"price_watcher/internal/domain"
)

const scrapeJob = "scrape"

// Batch scrapes every listing of every tracker. One listing failing never
// stops the run; failures are collected into the report.
type Batch struct {
	pipeline *Pipeline
	trackers TrackerStore
	runState RunStateStore
	locker   RunLocker
	logger   *slog.Logger
	config   config.ScrapeConfig
	now      func() time.Time
}

func NewBatch(
	pipeline *Pipeline,
	trackers TrackerStore,
	runState RunStateStore,
	locker RunLocker,
	logger *slog.Logger,
	cfg config.ScrapeConfig,
) *Batch {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.FetchAttempts < 1 {
		cfg.FetchAttempts = 1
	}
	return &Batch{
		pipeline: pipeline,
		trackers: trackers,
		runState: runState,
		locker:   locker,
		logger:   logger.With("component", "batch"),
		config:   cfg,
		now:      time.Now,
	}
}

// Run returns ErrRunInProgress when another run holds the run lock.
func (b *Batch) Run(ctx context.Context) (*domain.RunReport, error) {
	if b.locker != nil {
		release, ok, err := b.locker.TryLock(ctx)
		if err != nil {
			return nil, fmt.Errorf("acquire run lock: %w", err)
		}
		if !ok {
			return nil, ErrRunInProgress
		}
		defer release()
	}

	startTime := b.now()
	runID := uuid.NewString()
	logger := b.logger.With("run_id", runID)

	trackers, err := b.trackers.ListWithListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load trackers: %w", err)
	}

	var listings []domain.Listing
	for _, t := range trackers {
		listings = append(listings, t.Listings...)
	}

	logger.Info("starting scrape run",
		"trackers", len(trackers),
		"listings", len(listings),
		"workers", b.config.Workers,
	)

	// one slot per listing keeps the report in load order
	results := make([]error, len(listings))

	var g errgroup.Group
	g.SetLimit(b.config.Workers)
	for i := range listings {
		g.Go(func() error {
			results[i] = b.process(ctx, logger, &listings[i])
			return nil
		})
	}
	_ = g.Wait()

	report := &domain.RunReport{
		RunID:    runID,
		Trackers: len(trackers),
		Total:    len(listings),
	}
	for _, err := range results {
		if err == nil {
			report.Processed++
			continue
		}
		report.Failed++
		report.Errors = append(report.Errors, err.Error())
	}
	report.Duration = b.now().Sub(startTime)

	if err := b.updateRunState(ctx, report, startTime); err != nil {
		logger.Warn("failed to update run state", "error", err)
	}

	logger.Info("scrape run completed",
		"processed", report.Processed,
		"failed", report.Failed,
		"duration", report.Duration,
	)

	return report, nil
}

func (b *Batch) process(ctx context.Context, logger *slog.Logger, listing *domain.Listing) error {
	data, err := b.scrapeWithRetry(ctx, logger, listing)
	if err != nil {
		logger.Warn("listing failed", "listing_id", listing.ID, "stage", StageFetch, "error", err)
		return &ListingError{ListingID: listing.ID, Stage: StageFetch, Err: err}
	}

	if _, err := b.pipeline.Persist(ctx, listing.ID, data, domain.SourceCron); err != nil {
		logger.Warn("listing failed", "listing_id", listing.ID, "stage", StagePersist, "error", err)
		return &ListingError{ListingID: listing.ID, Stage: StagePersist, Err: err}
	}

	return nil
}

func (b *Batch) scrapeWithRetry(ctx context.Context, logger *slog.Logger, listing *domain.Listing) (domain.ScrapedData, error) {
	var (
		data domain.ScrapedData
		err  error
	)

	for attempt := 1; attempt <= b.config.FetchAttempts; attempt++ {
		data, err = b.pipeline.Scrape(ctx, listing)
		if err == nil {
			return data, nil
		}

		if attempt == b.config.FetchAttempts {
			break
		}

		backoff := b.calculateBackoff(attempt)
		logger.Debug("fetch failed, retrying",
			"listing_id", listing.ID,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)

		select {
		case <-ctx.Done():
			return domain.ScrapedData{}, ctx.Err()
		case <-time.After(backoff):
		}
	}

	if b.config.FetchAttempts > 1 {
		return domain.ScrapedData{}, fmt.Errorf("after %d attempts: %w", b.config.FetchAttempts, err)
	}
	return domain.ScrapedData{}, err
}

func (b *Batch) calculateBackoff(attempt int) time.Duration {
	backoff := b.config.InitialBackoff
	for i := 1; i < attempt; i++ {
		if b.config.MaxBackoff > 0 && backoff > b.config.MaxBackoff/2 {
			return b.config.MaxBackoff
		}
		if backoff > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		backoff *= 2
	}
	if b.config.MaxBackoff > 0 && backoff > b.config.MaxBackoff {
		backoff = b.config.MaxBackoff
	}
	return backoff
}

func (b *Batch) updateRunState(ctx context.Context, report *domain.RunReport, startTime time.Time) error {
	if b.runState == nil {
		return nil
	}

	state, err := b.runState.Get(ctx, scrapeJob)
	if err != nil {
		return err
	}

	state.Job = scrapeJob
	state.LastRunID = report.RunID
	state.LastStartedAt = startTime
	state.LastFinishedAt = b.now()
	state.LastProcessed = report.Processed
	state.LastFailed = report.Failed
	state.TotalProcessed += int64(report.Processed)

	return b.runState.Update(ctx, state)
}
