package setup

import (
	"fmt"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/collectors"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
)

type UseCases struct {
	Collectors        []domain.RateCollector
	CollectionUsecase *usecase.DefaultCollectionUsecase
	HealthUsecase     *usecase.DefaultHealthUsecase
}

func InitializeUseCases(deps *Dependencies) (*UseCases, error) {
	cfg := deps.Config

	fetcher := collectors.NewFetcher(cfg.Collection.HTTPTimeout, cfg.Collection.UserAgent)
	validator := domain.NewRateValidator(cfg.Collection.MaxRate, cfg.Collection.ExtraCodes...)
	sources, err := collectors.NewDefaultCollectors(fetcher, validator, collectors.DefaultEndpoints())
	if err != nil {
		return nil, fmt.Errorf("collectors: %w", err)
	}

	collectionUC := usecase.NewCollectionUsecase(deps.RateRepo, sources,
		usecase.WithCollectorTimeout(cfg.Collection.Timeout),
		usecase.WithLogger(deps.Log),
		usecase.WithMetrics(deps.Metrics),
		usecase.WithPublisher(deps.RunEvents),
		usecase.WithRunLog(deps.RunLog),
	)

	healthUC := usecase.NewHealthUsecase(deps.RateRepo, sources, usecase.HealthConfig{
		Window:          cfg.Health.Window,
		DownAfter:       cfg.Health.DownAfter,
		DegradedAfter:   cfg.Health.DegradedAfter,
		ExpectedUpdates: cfg.Health.ExpectedUpdates,
		MinRatio:        cfg.Health.MinRatio,
		SampleLimit:     cfg.Health.SampleLimit,
	}, deps.Log)

	return &UseCases{
		Collectors:        sources,
		CollectionUsecase: collectionUC,
		HealthUsecase:     healthUC,
	}, nil
}
