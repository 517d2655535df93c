package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"price_watcher/internal/domain"
)

type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (string, error)
}

type Extractor interface {
	Extract(html string) domain.ScrapedData
}

type ListingStore interface {
	GetByID(ctx context.Context, id int64) (*domain.Listing, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.Listing, error)
	UpdateScrapeResult(ctx context.Context, id int64, price decimal.NullDecimal, isAvailable bool, checkedAt time.Time) (*domain.Listing, error)
}

type TrackerStore interface {
	ListWithListings(ctx context.Context) ([]domain.Tracker, error)
	LockForUpdate(ctx context.Context, id int64) (*domain.Tracker, error)
	UpdateLowestAvailablePrice(ctx context.Context, id int64, price decimal.Decimal) error
}

type SnapshotStore interface {
	Latest(ctx context.Context, listingID int64) (*domain.ListingSnapshot, error)
	Create(ctx context.Context, snap *domain.ListingSnapshot) error
	ListByListingID(ctx context.Context, listingID int64) ([]domain.ListingSnapshot, error)
}

type EventStore interface {
	CreateBatch(ctx context.Context, events []domain.ListingEvent) error
	ListByListingID(ctx context.Context, listingID int64) ([]domain.ListingEvent, error)
}

type RunStateStore interface {
	Get(ctx context.Context, job string) (*domain.RunState, error)
	Update(ctx context.Context, state *domain.RunState) error
}

type RunLocker interface {
	TryLock(ctx context.Context) (release func(), ok bool, err error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type Publisher interface {
	Publish(ctx context.Context, event *domain.ListingEvent) error
	Close() error
}
