package setup

import (
	"fmt"
	"log/slog"

	"github.com/LavaJover/mmk-rates-service/internal/config"
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/cache"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/kafka"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/logger"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/metrics"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/migrate"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/postgres"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/postgres/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Dependencies struct {
	Config    *config.RatesConfig
	Log       *slog.Logger
	DB        *gorm.DB
	Redis     *redis.Client
	Kafka     *kafka.KafkaPublisher
	Registry  *prometheus.Registry
	Metrics   *metrics.CollectorMetrics
	RateRepo  domain.RateRepository
	RunLog    logger.RunLogger
	Alerts    *logger.PGHealthAlertLogger
	RunEvents *kafka.RunEventPublisher
}

func InitializeDependencies(cfg *config.RatesConfig, log *slog.Logger) (*Dependencies, error) {
	db := postgres.MustInitDB(cfg)
	if err := migrate.RunMigrations(db, cfg.RatesDB.MigrationsPath); err != nil {
		return nil, fmt.Errorf("migrations: %w", err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := &Dependencies{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Registry: registry,
		Metrics:  metrics.NewCollectorMetrics(registry),
		RunLog:   logger.NewPGRunLogger(db),
		Alerts:   logger.NewPGHealthAlertLogger(db),
	}

	var repo domain.RateRepository = repository.NewDefaultRateRepository(db)
	if cfg.Redis.Addr != "" {
		client, err := cache.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, serving latest rates from postgres", "error", err)
		} else {
			deps.Redis = client
			repo = cache.NewLatestRatesCache(repo, client, cfg.Redis.LatestTTL, log)
		}
	}
	deps.RateRepo = repo

	var pub domain.PublisherPort = kafka.NoopPublisher{}
	if cfg.Kafka.Enabled && len(cfg.Kafka.Brokers) > 0 {
		deps.Kafka = kafka.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		pub = deps.Kafka
	}
	deps.RunEvents = kafka.NewRunEventPublisher(pub)

	return deps, nil
}

// Close releases the outbound connections. The gorm pool is closed last.
func (d *Dependencies) Close() {
	if d.Kafka != nil {
		if err := d.Kafka.Close(); err != nil {
			d.Log.Error("failed to close kafka writer", "error", err)
		}
	}
	if d.Redis != nil {
		if err := d.Redis.Close(); err != nil {
			d.Log.Error("failed to close redis client", "error", err)
		}
	}
	if sqlDB, err := d.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
