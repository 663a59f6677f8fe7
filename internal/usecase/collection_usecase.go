package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/logger"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/metrics"
	"github.com/google/uuid"
)

const (
	DefaultCollectorTimeout = 30 * time.Second
	LatestRatesLimit        = 50
	HistoricalRatesLimit    = 1000

	TriggerScheduled = "scheduled"
	TriggerManual    = "manual"
)

type CollectionUsecase interface {
	CollectAll(ctx context.Context) (*domain.CollectionSummary, error)
	CollectSource(ctx context.Context, source string) (*domain.CollectionSummary, error)
	GetLatestRates(ctx context.Context, currency string) ([]domain.ExchangeRate, error)
	GetHistoricalRates(ctx context.Context, query domain.HistoryQuery) ([]domain.RateDocument, error)
	GetCollectionStatuses(ctx context.Context) ([]domain.CollectionStatus, error)
	Sources() []domain.SourceInfo
}

type RunEventPublisher interface {
	PublishRunCompleted(ctx context.Context, trigger string, summary *domain.CollectionSummary) error
}

type DefaultCollectionUsecase struct {
	Repo       domain.RateRepository
	Collectors []domain.RateCollector
	Metrics    *metrics.CollectorMetrics
	Publisher  RunEventPublisher
	RunLog     logger.RunLogger

	timeout time.Duration
	log     *slog.Logger
	now     func() time.Time
}

type CollectionOption func(*DefaultCollectionUsecase)

func WithCollectorTimeout(d time.Duration) CollectionOption {
	return func(uc *DefaultCollectionUsecase) {
		if d > 0 {
			uc.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) CollectionOption {
	return func(uc *DefaultCollectionUsecase) { uc.log = l }
}

func WithMetrics(m *metrics.CollectorMetrics) CollectionOption {
	return func(uc *DefaultCollectionUsecase) { uc.Metrics = m }
}

func WithPublisher(p RunEventPublisher) CollectionOption {
	return func(uc *DefaultCollectionUsecase) { uc.Publisher = p }
}

func WithRunLog(l logger.RunLogger) CollectionOption {
	return func(uc *DefaultCollectionUsecase) { uc.RunLog = l }
}

func WithClock(now func() time.Time) CollectionOption {
	return func(uc *DefaultCollectionUsecase) { uc.now = now }
}

func NewCollectionUsecase(repo domain.RateRepository, collectors []domain.RateCollector, opts ...CollectionOption) *DefaultCollectionUsecase {
	uc := &DefaultCollectionUsecase{
		Repo:       repo,
		Collectors: collectors,
		timeout:    DefaultCollectorTimeout,
		log:        slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.log = uc.log.With("component", "collection")
	return uc
}

type triggerKey struct{}

// WithTrigger labels the runs started with ctx in logs, the run log and events.
func WithTrigger(ctx context.Context, trigger string) context.Context {
	return context.WithValue(ctx, triggerKey{}, trigger)
}

func triggerFrom(ctx context.Context) string {
	if t, ok := ctx.Value(triggerKey{}).(string); ok && t != "" {
		return t
	}
	return TriggerScheduled
}

// CollectorTimeoutError is recorded for a collector that did not answer in time.
type CollectorTimeoutError struct {
	Source string
	After  time.Duration
}

func (e *CollectorTimeoutError) Error() string {
	return fmt.Sprintf("%s collector timed out after %s", e.Source, e.After)
}

func (e *CollectorTimeoutError) Unwrap() error { return domain.ErrCollectorTimeout }

func (uc *DefaultCollectionUsecase) CollectAll(ctx context.Context) (*domain.CollectionSummary, error) {
	return uc.collect(ctx, uc.Collectors)
}

func (uc *DefaultCollectionUsecase) CollectSource(ctx context.Context, source string) (*domain.CollectionSummary, error) {
	for _, c := range uc.Collectors {
		if strings.EqualFold(c.Name(), source) {
			return uc.collect(ctx, []domain.RateCollector{c})
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSource, source)
}

func (uc *DefaultCollectionUsecase) collect(ctx context.Context, collectors []domain.RateCollector) (*domain.CollectionSummary, error) {
	if len(collectors) == 0 {
		return nil, domain.ErrNoCollectors
	}
	if err := uc.Repo.Ping(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	trigger := triggerFrom(ctx)
	startedAt := uc.now()
	summary := &domain.CollectionSummary{
		RunID:     uuid.NewString(),
		Results:   make(map[string]domain.CollectorResult, len(collectors)),
		Errors:    make(map[string]string),
		StartedAt: startedAt,
	}
	log := uc.log.With("run_id", summary.RunID, "trigger", trigger)
	log.Info("starting rate collection", "collectors", len(collectors))

	results := make([]domain.CollectorResult, len(collectors))
	var wg sync.WaitGroup
	for i, c := range collectors {
		wg.Add(1)
		go func(i int, c domain.RateCollector) {
			defer wg.Done()
			results[i] = uc.runCollector(ctx, c)
		}(i, c)
	}
	wg.Wait()

	updates := make([]domain.StatusUpdate, 0, len(collectors))
	var storeWG sync.WaitGroup
	for i, c := range collectors {
		name := c.Name()
		res := results[i]
		summary.Results[name] = res
		uc.recordCollector(name, res)

		updates = append(updates, domain.StatusUpdate{
			Source:  name,
			Success: res.Success,
			Error:   res.Error,
			RunAt:   startedAt,
		})

		if !res.Success {
			summary.FailureCount++
			summary.Errors[name] = res.Error
			log.Warn("collector failed", "source", name, "error", res.Error, "warnings", res.Metadata.Warnings)
			continue
		}

		summary.SuccessCount++
		summary.TotalRates += len(res.Rates)
		log.Info("collector succeeded", "source", name, "rates", len(res.Rates), "method", res.Metadata.Method, "duration_ms", res.Metadata.CollectionTime)

		storeWG.Add(1)
		go func(name string, rates []domain.ExchangeRate) {
			defer storeWG.Done()
			if err := uc.Repo.StoreRates(ctx, rates); err != nil {
				log.Error("failed to store rates", "source", name, "error", err)
				if uc.Metrics != nil {
					uc.Metrics.RecordStoreError(name)
				}
			}
		}(name, res.Rates)
	}
	storeWG.Wait()

	if err := uc.Repo.UpdateCollectionStatus(ctx, updates); err != nil {
		log.Error("failed to update collection status", "error", err)
	}

	summary.Duration = uc.now().Sub(startedAt)
	uc.finishRun(ctx, log, trigger, summary)
	return summary, nil
}

// runCollector enforces the per-collector deadline. A result that arrives after it is discarded.
func (uc *DefaultCollectionUsecase) runCollector(ctx context.Context, c domain.RateCollector) domain.CollectorResult {
	name := c.Name()
	cctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	done := make(chan domain.CollectorResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- domain.CollectorResult{Error: fmt.Sprintf("%s collector panicked: %v", name, r)}
			}
		}()
		done <- c.Collect(cctx)
	}()

	timer := time.NewTimer(uc.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if ctx.Err() == nil && cctx.Err() != nil {
			return uc.timeoutResult(name)
		}
		return res
	case <-timer.C:
		return uc.timeoutResult(name)
	case <-ctx.Done():
		return domain.CollectorResult{Error: fmt.Sprintf("%s collector cancelled: %v", name, ctx.Err())}
	}
}

func (uc *DefaultCollectionUsecase) timeoutResult(name string) domain.CollectorResult {
	err := &CollectorTimeoutError{Source: name, After: uc.timeout}
	return domain.CollectorResult{
		Error:    err.Error(),
		Metadata: domain.CollectorMetadata{CollectionTime: uc.timeout.Milliseconds()},
	}
}

func (uc *DefaultCollectionUsecase) recordCollector(name string, res domain.CollectorResult) {
	if uc.Metrics == nil {
		return
	}
	uc.Metrics.RecordCollector(name, res)
}

func (uc *DefaultCollectionUsecase) finishRun(ctx context.Context, log *slog.Logger, trigger string, summary *domain.CollectionSummary) {
	if uc.Metrics != nil {
		uc.Metrics.RecordRun(summary)
	}
	if uc.RunLog != nil {
		if err := uc.RunLog.LogRun(ctx, trigger, summary); err != nil {
			log.Error("failed to write run log", "error", err)
		}
	}
	if uc.Publisher != nil {
		if err := uc.Publisher.PublishRunCompleted(ctx, trigger, summary); err != nil {
			log.Error("failed to publish run event", "error", err)
		}
	}

	log.Info("rate collection finished",
		"success", summary.SuccessCount,
		"failed", summary.FailureCount,
		"total_rates", summary.TotalRates,
		"duration", summary.Duration,
	)
	if summary.FailureCount > summary.SuccessCount {
		log.Error("more failures than successes", "errors", summary.Errors)
	}
}

func (uc *DefaultCollectionUsecase) GetLatestRates(ctx context.Context, currency string) ([]domain.ExchangeRate, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	docs, err := uc.Repo.GetLatestRates(ctx, currency, LatestRatesLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest rates: %w", err)
	}

	rates := make([]domain.ExchangeRate, len(docs))
	for i, doc := range docs {
		rates[i] = doc.ExchangeRate
	}
	return rates, nil
}

func (uc *DefaultCollectionUsecase) GetHistoricalRates(ctx context.Context, query domain.HistoryQuery) ([]domain.RateDocument, error) {
	query.Currency = strings.ToUpper(strings.TrimSpace(query.Currency))
	if err := query.Validate(); err != nil {
		return nil, err
	}
	if query.Limit <= 0 || query.Limit > HistoricalRatesLimit {
		query.Limit = HistoricalRatesLimit
	}

	docs, err := uc.Repo.GetHistoricalRates(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get historical rates: %w", err)
	}
	return docs, nil
}

func (uc *DefaultCollectionUsecase) GetCollectionStatuses(ctx context.Context) ([]domain.CollectionStatus, error) {
	statuses, err := uc.Repo.GetCollectionStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get collection statuses: %w", err)
	}
	return statuses, nil
}

// Sources lists collectors by descending priority, keeping registration order within a priority.
func (uc *DefaultCollectionUsecase) Sources() []domain.SourceInfo {
	return sourcesOf(uc.Collectors)
}

func sourcesOf(collectors []domain.RateCollector) []domain.SourceInfo {
	infos := make([]domain.SourceInfo, len(collectors))
	for i, c := range collectors {
		infos[i] = domain.SourceInfo{Name: c.Name(), Priority: c.Priority()}
	}
	sort.SliceStable(infos, func(i, j int) bool { return infos[i].Priority > infos[j].Priority })
	return infos
}
