package background

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/metrics"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
)

type HealthReporter interface {
	Report(report map[string]domain.CollectorHealth)
}

type AlertSink interface {
	LogAlert(ctx context.Context, alert domain.HealthAlert) error
}

type BackgroundTasks struct {
	CollectionUsecase usecase.CollectionUsecase
	HealthUsecase     usecase.HealthUsecase
	Metrics           *metrics.CollectorMetrics
	Reporter          HealthReporter
	Alerts            AlertSink

	CollectionInterval time.Duration
	HealthInterval     time.Duration
	RunOnStart         bool

	Log *slog.Logger

	now func() time.Time
	wg  sync.WaitGroup
}

func NewBackgroundTasks(collectionUC usecase.CollectionUsecase, healthUC usecase.HealthUsecase, m *metrics.CollectorMetrics, reporter HealthReporter, log *slog.Logger) *BackgroundTasks {
	return &BackgroundTasks{
		CollectionUsecase:  collectionUC,
		HealthUsecase:      healthUC,
		Metrics:            m,
		Reporter:           reporter,
		CollectionInterval: 30 * time.Minute,
		HealthInterval:     5 * time.Minute,
		RunOnStart:         true,
		Log:                log.With("component", "background"),
		now:                time.Now,
	}
}

// StartAll launches the loops; they stop when ctx is done.
func (bt *BackgroundTasks) StartAll(ctx context.Context) {
	bt.wg.Add(2)
	go func() {
		defer bt.wg.Done()
		bt.startRateCollection(ctx)
	}()
	go func() {
		defer bt.wg.Done()
		bt.startHealthCheck(ctx)
	}()
}

// Wait blocks until the loops started by StartAll have returned.
func (bt *BackgroundTasks) Wait() {
	bt.wg.Wait()
}

func (bt *BackgroundTasks) startRateCollection(ctx context.Context) {
	if bt.RunOnStart {
		bt.collectRates(ctx)
	}

	ticker := time.NewTicker(bt.CollectionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.collectRates(ctx)
		}
	}
}

func (bt *BackgroundTasks) startHealthCheck(ctx context.Context) {
	ticker := time.NewTicker(bt.HealthInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			bt.checkHealth(ctx)
		}
	}
}

func (bt *BackgroundTasks) collectRates(ctx context.Context) {
	summary, err := bt.CollectionUsecase.CollectAll(usecase.WithTrigger(ctx, usecase.TriggerScheduled))
	if err != nil {
		bt.Log.Error("scheduled rate collection failed", "error", err)
		return
	}
	bt.Log.Info("scheduled rate collection done",
		"run_id", summary.RunID,
		"success", summary.SuccessCount,
		"failed", summary.FailureCount,
		"total_rates", summary.TotalRates,
	)
}

func (bt *BackgroundTasks) checkHealth(ctx context.Context) {
	report, err := bt.HealthUsecase.Evaluate(ctx)
	if err != nil {
		bt.Log.Error("collector health check failed", "error", err)
		return
	}

	for _, h := range report {
		if bt.Metrics != nil {
			bt.Metrics.RecordHealth(h)
		}
	}
	if bt.Reporter != nil {
		bt.Reporter.Report(report)
	}

	down := usecase.DownSources(report)
	if len(down) == 0 {
		return
	}
	message := "Collectors down: " + strings.Join(down, ", ")
	bt.Log.Error(message, "count", len(down))
	if bt.Alerts == nil {
		return
	}
	alert := domain.HealthAlert{
		Type:      domain.AlertCollectorsDown,
		Message:   message,
		Sources:   down,
		CreatedAt: bt.now(),
	}
	if err := bt.Alerts.LogAlert(ctx, alert); err != nil {
		bt.Log.Error("failed to persist health alert", "error", err)
	}
}
