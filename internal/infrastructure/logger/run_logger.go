package logger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"gorm.io/gorm"
)

// CollectionRunEvent is the audit row written once per collection run.
type CollectionRunEvent struct {
	ID           uint   `gorm:"primaryKey"`
	RunID        string `gorm:"uniqueIndex"`
	Trigger      string
	SuccessCount int
	FailureCount int
	TotalRates   int
	Errors       string
	DurationMs   int64
	StartedAt    time.Time
}

func (CollectionRunEvent) TableName() string { return "collection_runs" }

type RunLogger interface {
	LogRun(ctx context.Context, trigger string, summary *domain.CollectionSummary) error
}

type PGRunLogger struct {
	db *gorm.DB
}

func NewPGRunLogger(db *gorm.DB) *PGRunLogger {
	return &PGRunLogger{db: db}
}

func (l *PGRunLogger) LogRun(ctx context.Context, trigger string, summary *domain.CollectionSummary) error {
	event, err := NewCollectionRunEvent(trigger, summary)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Create(&event).Error
}

func NewCollectionRunEvent(trigger string, summary *domain.CollectionSummary) (CollectionRunEvent, error) {
	errs, err := json.Marshal(summary.Errors)
	if err != nil {
		return CollectionRunEvent{}, err
	}
	return CollectionRunEvent{
		RunID:        summary.RunID,
		Trigger:      trigger,
		SuccessCount: summary.SuccessCount,
		FailureCount: summary.FailureCount,
		TotalRates:   summary.TotalRates,
		Errors:       string(errs),
		DurationMs:   summary.Duration.Milliseconds(),
		StartedAt:    summary.StartedAt,
	}, nil
}
