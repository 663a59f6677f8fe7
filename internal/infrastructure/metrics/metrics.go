package metrics

import (
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// CollectorMetrics holds the collection pipeline metrics.
type CollectorMetrics struct {
	// Runs of the orchestrator
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram

	// Per source outcomes
	CollectorResultsTotal *prometheus.CounterVec
	CollectorDuration     *prometheus.HistogramVec
	RatesCollectedTotal   *prometheus.CounterVec

	// Storage
	StoreErrorsTotal *prometheus.CounterVec

	// Health derived from stored rates
	CollectorHealth *prometheus.GaugeVec
}

func NewCollectorMetrics(reg prometheus.Registerer) *CollectorMetrics {
	factory := promauto.With(reg)
	return &CollectorMetrics{
		RunsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmk_collection_runs_total",
				Help: "Collection runs by outcome",
			},
			[]string{"outcome"},
		),

		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "mmk_collection_run_duration_seconds",
				Help:    "Wall time of a full collection run",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 8), // 250ms .. 32s
			},
		),

		CollectorResultsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmk_collector_results_total",
				Help: "Collector invocations by source and outcome",
			},
			[]string{"source", "outcome"},
		),

		CollectorDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mmk_collector_duration_seconds",
				Help:    "Time spent in a single collector",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
			},
			[]string{"source"},
		),

		RatesCollectedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmk_rates_collected_total",
				Help: "Validated rates returned by collectors",
			},
			[]string{"source"},
		),

		StoreErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mmk_rate_store_errors_total",
				Help: "Failed rate batch writes",
			},
			[]string{"source"},
		),

		CollectorHealth: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mmk_collector_health_status",
				Help: "Collector health: 0 down, 1 degraded, 2 healthy",
			},
			[]string{"source"},
		),
	}
}

// RecordCollector records one collector outcome
func (m *CollectorMetrics) RecordCollector(source string, result domain.CollectorResult) {
	outcome := "failure"
	if result.Success {
		outcome = "success"
	}
	m.CollectorResultsTotal.WithLabelValues(source, outcome).Inc()
	m.CollectorDuration.WithLabelValues(source).Observe(float64(result.Metadata.CollectionTime) / 1000)
	m.RatesCollectedTotal.WithLabelValues(source).Add(float64(len(result.Rates)))
}

// RecordRun records the aggregate of one run
func (m *CollectorMetrics) RecordRun(summary *domain.CollectionSummary) {
	outcome := "complete"
	switch {
	case summary.SuccessCount == 0:
		outcome = "failed"
	case summary.FailureCount > 0:
		outcome = "partial"
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	m.RunDuration.Observe(summary.Duration.Seconds())
}

func (m *CollectorMetrics) RecordStoreError(source string) {
	m.StoreErrorsTotal.WithLabelValues(source).Inc()
}

func (m *CollectorMetrics) RecordHealth(health domain.CollectorHealth) {
	value := 0.0
	switch health.Status {
	case domain.HealthHealthy:
		value = 2
	case domain.HealthDegraded:
		value = 1
	}
	m.CollectorHealth.WithLabelValues(health.Source).Set(value)
}
