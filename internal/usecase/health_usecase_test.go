package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func recordsAt(times ...time.Time) []domain.RateDocument {
	docs := make([]domain.RateDocument, len(times))
	for i, ts := range times {
		docs[i] = domain.RateDocument{ExchangeRate: domain.ExchangeRate{Timestamp: ts}}
	}
	return docs
}

func hourly(now time.Time, count int, offset time.Duration) []domain.RateDocument {
	times := make([]time.Time, count)
	for i := range times {
		times[i] = now.Add(-offset - time.Duration(i)*time.Hour)
	}
	return recordsAt(times...)
}

func TestHealthUsecase_Evaluate(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := DefaultHealthConfig()

	tests := []struct {
		name       string
		records    []domain.RateDocument
		err        error
		wantStatus domain.HealthStatus
		wantRate   float64
	}{
		{name: "fresh and frequent", records: hourly(now, 24, 10*time.Minute), wantStatus: domain.HealthHealthy, wantRate: 1},
		{name: "ratio capped at one", records: hourly(now, 40, 0), wantStatus: domain.HealthHealthy, wantRate: 1},
		{name: "no records", records: nil, wantStatus: domain.HealthDown},
		{name: "newest older than down threshold", records: hourly(now, 24, 7*time.Hour), wantStatus: domain.HealthDown, wantRate: 1},
		{name: "newest older than degraded threshold", records: hourly(now, 24, 3*time.Hour), wantStatus: domain.HealthDegraded, wantRate: 1},
		{name: "too few updates", records: hourly(now, 12, 0), wantStatus: domain.HealthDegraded, wantRate: 0.5},
		{name: "read error", err: assert.AnError, wantStatus: domain.HealthDown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(mockRateRepository)
			repo.On("GetRecentRates", mock.Anything, "KBZ", now.Add(-cfg.Window), cfg.SampleLimit).Return(tt.records, tt.err).Once()

			uc := NewHealthUsecase(repo, []domain.RateCollector{succeeding("KBZ", domain.PriorityMedium)}, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
			uc.now = func() time.Time { return now }

			report, err := uc.Evaluate(context.Background())
			require.NoError(t, err)

			h := report["KBZ"]
			assert.Equal(t, tt.wantStatus, h.Status)
			assert.InDelta(t, tt.wantRate, h.SuccessRate, 1e-9)
			assert.Equal(t, len(tt.records), h.RecordCount)
			assert.Equal(t, now, h.CheckedAt)
			if len(tt.records) > 0 {
				require.NotNil(t, h.LastSuccess)
				assert.Equal(t, tt.records[0].Timestamp, *h.LastSuccess)
			} else {
				assert.Nil(t, h.LastSuccess)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestHealthUsecase_OrderedAndDown(t *testing.T) {
	repo := new(mockRateRepository)
	repo.On("GetRecentRates", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, nil)
	collectors := []domain.RateCollector{
		succeeding("KBZ", domain.PriorityMedium),
		succeeding("Binance P2P", domain.PriorityLow),
		succeeding("CBM", domain.PriorityHigh),
	}

	uc := NewHealthUsecase(repo, collectors, DefaultHealthConfig(), nil)
	report, err := uc.Evaluate(context.Background())
	require.NoError(t, err)

	ordered := uc.Ordered(report)
	require.Len(t, ordered, 3)
	assert.Equal(t, "CBM", ordered[0].Source)
	assert.Equal(t, "KBZ", ordered[1].Source)
	assert.Equal(t, "Binance P2P", ordered[2].Source)
	assert.Equal(t, []string{"Binance P2P", "CBM", "KBZ"}, DownSources(report))
}

func TestHealthUsecase_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	uc := NewHealthUsecase(new(mockRateRepository), nil, DefaultHealthConfig(), nil)
	_, err := uc.Evaluate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
