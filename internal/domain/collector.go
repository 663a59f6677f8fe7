package domain

import (
	"context"
	"time"
)

type CollectionMethod string

const (
	MethodAPI       CollectionMethod = "api"
	MethodWebScrape CollectionMethod = "webscrape"
)

type Priority int

const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
)

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	}
	return "unknown"
}

// RateCollector fetches and normalizes rates from exactly one source.
// Collect never returns an error: every failure is reported through the result.
type RateCollector interface {
	Name() string
	Priority() Priority
	Collect(ctx context.Context) CollectorResult
}

type CollectorMetadata struct {
	CollectionTime int64 // milliseconds
	RateCount      int
	Method         CollectionMethod
	Warnings       []string
	RawExcerpt     string
}

type CollectorResult struct {
	Success  bool
	Rates    []ExchangeRate
	Error    string
	Metadata CollectorMetadata
}

type SourceInfo struct {
	Name     string
	Priority Priority
}

type CollectionSummary struct {
	RunID        string
	SuccessCount int
	FailureCount int
	TotalRates   int
	Results      map[string]CollectorResult
	Errors       map[string]string
	StartedAt    time.Time
	Duration     time.Duration
}
