package domain

import (
	"context"
	"time"
)

type RateRepository interface {
	Ping(ctx context.Context) error
	// StoreRates writes the rate log and latest-rate rows for one source atomically.
	StoreRates(ctx context.Context, rates []ExchangeRate) error
	// UpdateCollectionStatus applies one run's outcomes for all sources in a single batch.
	UpdateCollectionStatus(ctx context.Context, updates []StatusUpdate) error
	GetCollectionStatuses(ctx context.Context) ([]CollectionStatus, error)
	GetLatestRates(ctx context.Context, currency string, limit int) ([]LatestRateDocument, error)
	GetHistoricalRates(ctx context.Context, query HistoryQuery) ([]RateDocument, error)
	// GetRecentRates returns the newest rate log entries of a source since the given time.
	GetRecentRates(ctx context.Context, source string, since time.Time, limit int) ([]RateDocument, error)
}
