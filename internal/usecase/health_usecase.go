package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

type HealthConfig struct {
	Window          time.Duration
	DownAfter       time.Duration
	DegradedAfter   time.Duration
	ExpectedUpdates int
	MinRatio        float64
	SampleLimit     int
}

func DefaultHealthConfig() HealthConfig {
	return HealthConfig{
		Window:          24 * time.Hour,
		DownAfter:       6 * time.Hour,
		DegradedAfter:   2 * time.Hour,
		ExpectedUpdates: 24,
		MinRatio:        0.8,
		SampleLimit:     50,
	}
}

type HealthUsecase interface {
	Evaluate(ctx context.Context) (map[string]domain.CollectorHealth, error)
	Ordered(report map[string]domain.CollectorHealth) []domain.CollectorHealth
}

type DefaultHealthUsecase struct {
	Repo    domain.RateRepository
	sources []domain.SourceInfo
	cfg     HealthConfig
	log     *slog.Logger
	now     func() time.Time
}

func NewHealthUsecase(repo domain.RateRepository, collectors []domain.RateCollector, cfg HealthConfig, log *slog.Logger) *DefaultHealthUsecase {
	if log == nil {
		log = slog.Default()
	}
	return &DefaultHealthUsecase{
		Repo:    repo,
		sources: sourcesOf(collectors),
		cfg:     cfg,
		log:     log.With("component", "health"),
		now:     time.Now,
	}
}

// Evaluate derives each source's health from the rates it stored recently.
func (uc *DefaultHealthUsecase) Evaluate(ctx context.Context) (map[string]domain.CollectorHealth, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := uc.now()
	report := make(map[string]domain.CollectorHealth, len(uc.sources))
	for _, src := range uc.sources {
		report[src.Name] = uc.evaluateSource(ctx, src.Name, now)
	}
	return report, nil
}

func (uc *DefaultHealthUsecase) evaluateSource(ctx context.Context, source string, now time.Time) domain.CollectorHealth {
	health := domain.CollectorHealth{
		Source:    source,
		Status:    domain.HealthDown,
		CheckedAt: now,
	}

	records, err := uc.Repo.GetRecentRates(ctx, source, now.Add(-uc.cfg.Window), uc.cfg.SampleLimit)
	if err != nil {
		uc.log.Warn("failed to read recent rates", "source", source, "error", err)
		return health
	}
	if len(records) == 0 {
		return health
	}

	newest := records[0].Timestamp
	for _, r := range records[1:] {
		if r.Timestamp.After(newest) {
			newest = r.Timestamp
		}
	}
	health.LastSuccess = &newest
	health.RecordCount = len(records)

	ratio := 1.0
	if uc.cfg.ExpectedUpdates > 0 {
		ratio = float64(len(records)) / float64(uc.cfg.ExpectedUpdates)
		if ratio > 1 {
			ratio = 1
		}
	}
	health.SuccessRate = ratio

	age := now.Sub(newest)
	switch {
	case age > uc.cfg.DownAfter:
		health.Status = domain.HealthDown
	case age > uc.cfg.DegradedAfter || ratio < uc.cfg.MinRatio:
		health.Status = domain.HealthDegraded
	default:
		health.Status = domain.HealthHealthy
	}
	return health
}

// Ordered returns the report in source priority order.
func (uc *DefaultHealthUsecase) Ordered(report map[string]domain.CollectorHealth) []domain.CollectorHealth {
	out := make([]domain.CollectorHealth, 0, len(report))
	for _, src := range uc.sources {
		if h, ok := report[src.Name]; ok {
			out = append(out, h)
		}
	}
	return out
}

func DownSources(report map[string]domain.CollectorHealth) []string {
	var down []string
	for name, h := range report {
		if h.Status == domain.HealthDown {
			down = append(down, name)
		}
	}
	sort.Strings(down)
	return down
}
