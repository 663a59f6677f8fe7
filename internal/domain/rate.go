package domain

import (
	"fmt"
	"time"
)

const CollectorVersion = "1.0.0"

// ExchangeRate is a single observation produced by a collector, not yet persisted.
type ExchangeRate struct {
	Currency    string
	Rate        float64
	BuyRate     *float64
	SellRate    *float64
	Timestamp   time.Time
	Source      string
	SourceURL   string
	LastUpdated time.Time
}

type RateMetadata struct {
	SourceURL        string
	CollectorVersion string
}

// RateDocument is an append-only rate log entry.
type RateDocument struct {
	ID string
	ExchangeRate
	Metadata  RateMetadata
	CreatedAt time.Time
}

// LatestRateDocument holds the most recent observation for one source+currency pair.
type LatestRateDocument struct {
	ID string
	ExchangeRate
	UpdatedAt time.Time
}

type CollectionStatus struct {
	Source              string
	LastRun             time.Time
	LastSuccess         *time.Time
	ConsecutiveFailures int
	LastError           *string
	IsActive            bool
}

// StatusUpdate is the outcome of one source in one collection run.
type StatusUpdate struct {
	Source  string
	Success bool
	Error   string
	RunAt   time.Time
}

// RateDocumentID is deterministic so re-collection at the same instant overwrites.
func RateDocumentID(source, currency string, ts time.Time) string {
	return fmt.Sprintf("%s_%s_%d", source, currency, ts.UnixMilli())
}

func LatestRateID(source, currency string) string {
	return fmt.Sprintf("%s_%s", source, currency)
}

func NewRateDocument(rate ExchangeRate, now time.Time) RateDocument {
	return RateDocument{
		ID:           RateDocumentID(rate.Source, rate.Currency, rate.Timestamp),
		ExchangeRate: rate,
		Metadata: RateMetadata{
			SourceURL:        rate.SourceURL,
			CollectorVersion: CollectorVersion,
		},
		CreatedAt: now,
	}
}

func NewLatestRateDocument(rate ExchangeRate, now time.Time) LatestRateDocument {
	return LatestRateDocument{
		ID:           LatestRateID(rate.Source, rate.Currency),
		ExchangeRate: rate,
		UpdatedAt:    now,
	}
}

// HistoryQuery selects a range of the rate log. Source is optional.
type HistoryQuery struct {
	Currency string
	Start    time.Time
	End      time.Time
	Source   string
	Limit    int
}

func (q HistoryQuery) Validate() error {
	if q.Currency == "" {
		return fmt.Errorf("%w: currency is required", ErrInvalidQuery)
	}
	if q.Start.IsZero() || q.End.IsZero() {
		return fmt.Errorf("%w: start and end are required", ErrInvalidQuery)
	}
	if q.Start.After(q.End) {
		return fmt.Errorf("%w: start is after end", ErrInvalidQuery)
	}
	return nil
}
