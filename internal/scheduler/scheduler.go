package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"price_watcher/internal/domain"
	"price_watcher/internal/service"
)

// Runner runs one scrape batch.
type Runner interface {
	Run(ctx context.Context) (*domain.RunReport, error)
}

type Scheduler struct {
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	_, err := s.runner.Run(runCtx)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrRunInProgress):
		s.logger.Info("skipping tick, previous run still in progress")
	default:
		s.logger.Error("scrape run failed", "error", err)
	}
}
