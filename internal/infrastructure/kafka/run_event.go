package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

const CollectionCompletedEventType = "collection.completed"

type SourceOutcome struct {
	Source    string `json:"source"`
	Success   bool   `json:"success"`
	RateCount int    `json:"rate_count"`
	Method    string `json:"method"`
}

type CollectionCompletedEvent struct {
	EventType    string            `json:"event_type"`
	RunID        string            `json:"run_id"`
	Trigger      string            `json:"trigger"`
	StartedAt    time.Time         `json:"started_at"`
	DurationMs   int64             `json:"duration_ms"`
	SuccessCount int               `json:"success_count"`
	FailureCount int               `json:"failure_count"`
	TotalRates   int               `json:"total_rates"`
	Errors       map[string]string `json:"errors"`
	Sources      []SourceOutcome   `json:"sources"`
}

func NewCollectionCompletedEvent(trigger string, summary *domain.CollectionSummary) CollectionCompletedEvent {
	sources := make([]SourceOutcome, 0, len(summary.Results))
	for name, res := range summary.Results {
		sources = append(sources, SourceOutcome{
			Source:    name,
			Success:   res.Success,
			RateCount: len(res.Rates),
			Method:    string(res.Metadata.Method),
		})
	}
	sort.Slice(sources, func(i, j int) bool { return sources[i].Source < sources[j].Source })

	errs := summary.Errors
	if errs == nil {
		errs = map[string]string{}
	}

	return CollectionCompletedEvent{
		EventType:    CollectionCompletedEventType,
		RunID:        summary.RunID,
		Trigger:      trigger,
		StartedAt:    summary.StartedAt,
		DurationMs:   summary.Duration.Milliseconds(),
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		TotalRates:   summary.TotalRates,
		Errors:       errs,
		Sources:      sources,
	}
}

// RunEventPublisher encodes run summaries onto any PublisherPort, keyed by run id.
type RunEventPublisher struct {
	pub domain.PublisherPort
}

func NewRunEventPublisher(pub domain.PublisherPort) *RunEventPublisher {
	return &RunEventPublisher{pub: pub}
}

func (p *RunEventPublisher) PublishRunCompleted(ctx context.Context, trigger string, summary *domain.CollectionSummary) error {
	v, err := json.Marshal(NewCollectionCompletedEvent(trigger, summary))
	if err != nil {
		return fmt.Errorf("failed to encode run event: %w", err)
	}

	return p.pub.Publish(ctx, domain.Message{Key: []byte(summary.RunID), Value: v})
}
