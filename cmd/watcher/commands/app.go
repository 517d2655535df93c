package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"price_watcher/internal/config"
	"price_watcher/internal/extract"
	"price_watcher/internal/fetcher"
	"price_watcher/internal/publisher"
	"price_watcher/internal/service"
	"price_watcher/internal/storage/postgres"
)

// app holds the wired services shared by the serve and run commands.
type app struct {
	db        *sqlx.DB
	publisher *publisher.RabbitMQ
	pipeline  *service.Pipeline
	batch     *service.Batch
}

func newFetcher(cfg config.FetcherConfig, logger *slog.Logger) service.Fetcher {
	fcfg := fetcher.Config{
		Timeout:           cfg.Timeout,
		UserAgent:         cfg.UserAgent,
		PerDomainInterval: cfg.PerDomainInterval,
		MaxBodyBytes:      cfg.MaxBodyBytes,
	}
	if cfg.Mode == "browser" {
		return fetcher.NewBrowser(fcfg, logger)
	}
	return fetcher.NewHTTP(fcfg, logger)
}

func newApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	db, err := postgres.Connect(ctx, cfg.Database.Driver, cfg.Database.DSN(), cfg.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("connected to database", "driver", cfg.Database.Driver)

	a := &app{db: db}

	// a nil interface, not a nil *RabbitMQ, turns publishing off
	var pub service.Publisher
	if cfg.RabbitMQ.Enabled {
		rabbitMQ, err := publisher.NewRabbitMQ(publisher.Config{
			URL:        cfg.RabbitMQ.URL,
			Exchange:   cfg.RabbitMQ.Exchange,
			RoutingKey: cfg.RabbitMQ.RoutingKey,
			QueueName:  cfg.RabbitMQ.QueueName,
		}, logger)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("connect to rabbitmq: %w", err)
		}
		a.publisher = rabbitMQ
		pub = rabbitMQ
	}

	listingStore := postgres.NewListingStore(db)
	trackerStore := postgres.NewTrackerStore(db)
	snapshotStore := postgres.NewSnapshotStore(db)
	eventStore := postgres.NewEventStore(db)
	runStateStore := postgres.NewRunStateStore(db)
	txManager := postgres.NewTransactionManager(db)
	runLock := postgres.NewRunLock(db, cfg.Scrape.LockKey)

	a.pipeline = service.NewPipeline(
		newFetcher(cfg.Fetcher, logger),
		extract.New(),
		listingStore,
		trackerStore,
		snapshotStore,
		eventStore,
		txManager,
		pub,
		logger,
	)
	a.batch = service.NewBatch(a.pipeline, trackerStore, runStateStore, runLock, logger, cfg.Scrape)

	return a, nil
}

func (a *app) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	_ = a.db.Close()
}
