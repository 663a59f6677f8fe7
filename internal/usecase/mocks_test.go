package usecase

import (
	"context"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/stretchr/testify/mock"
)

type mockRateRepository struct {
	mock.Mock
}

func (m *mockRateRepository) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockRateRepository) StoreRates(ctx context.Context, rates []domain.ExchangeRate) error {
	return m.Called(ctx, rates).Error(0)
}

func (m *mockRateRepository) UpdateCollectionStatus(ctx context.Context, updates []domain.StatusUpdate) error {
	return m.Called(ctx, updates).Error(0)
}

func (m *mockRateRepository) GetCollectionStatuses(ctx context.Context) ([]domain.CollectionStatus, error) {
	args := m.Called(ctx)
	statuses, _ := args.Get(0).([]domain.CollectionStatus)
	return statuses, args.Error(1)
}

func (m *mockRateRepository) GetLatestRates(ctx context.Context, currency string, limit int) ([]domain.LatestRateDocument, error) {
	args := m.Called(ctx, currency, limit)
	docs, _ := args.Get(0).([]domain.LatestRateDocument)
	return docs, args.Error(1)
}

func (m *mockRateRepository) GetHistoricalRates(ctx context.Context, query domain.HistoryQuery) ([]domain.RateDocument, error) {
	args := m.Called(ctx, query)
	docs, _ := args.Get(0).([]domain.RateDocument)
	return docs, args.Error(1)
}

func (m *mockRateRepository) GetRecentRates(ctx context.Context, source string, since time.Time, limit int) ([]domain.RateDocument, error) {
	args := m.Called(ctx, source, since, limit)
	docs, _ := args.Get(0).([]domain.RateDocument)
	return docs, args.Error(1)
}

type mockRunEventPublisher struct {
	mock.Mock
}

func (m *mockRunEventPublisher) PublishRunCompleted(ctx context.Context, trigger string, summary *domain.CollectionSummary) error {
	return m.Called(ctx, trigger, summary).Error(0)
}

type mockRunLogger struct {
	mock.Mock
}

func (m *mockRunLogger) LogRun(ctx context.Context, trigger string, summary *domain.CollectionSummary) error {
	return m.Called(ctx, trigger, summary).Error(0)
}

type fakeCollector struct {
	name     string
	priority domain.Priority
	collect  func(ctx context.Context) domain.CollectorResult
}

func (f *fakeCollector) Name() string              { return f.name }
func (f *fakeCollector) Priority() domain.Priority { return f.priority }

func (f *fakeCollector) Collect(ctx context.Context) domain.CollectorResult {
	return f.collect(ctx)
}

func twoRates(source string) []domain.ExchangeRate {
	now := time.Now()
	return []domain.ExchangeRate{
		{Currency: "USD", Rate: 2100, Source: source, Timestamp: now, LastUpdated: now},
		{Currency: "EUR", Rate: 2280, Source: source, Timestamp: now, LastUpdated: now},
	}
}

func succeeding(name string, priority domain.Priority) *fakeCollector {
	return &fakeCollector{name: name, priority: priority, collect: func(context.Context) domain.CollectorResult {
		rates := twoRates(name)
		return domain.CollectorResult{
			Success:  true,
			Rates:    rates,
			Metadata: domain.CollectorMetadata{RateCount: len(rates), Method: domain.MethodAPI},
		}
	}}
}

func failing(name, msg string) *fakeCollector {
	return &fakeCollector{name: name, priority: domain.PriorityMedium, collect: func(context.Context) domain.CollectorResult {
		return domain.CollectorResult{Error: msg, Metadata: domain.CollectorMetadata{Method: domain.MethodWebScrape}}
	}}
}

// stuck ignores its context and blocks until release is closed.
func stuck(name string, release <-chan struct{}) *fakeCollector {
	return &fakeCollector{name: name, priority: domain.PriorityLow, collect: func(context.Context) domain.CollectorResult {
		<-release
		return domain.CollectorResult{Success: true, Rates: twoRates(name)}
	}}
}

// hanging answers only after its context is done, always too late.
func hanging(name string) *fakeCollector {
	return &fakeCollector{name: name, priority: domain.PriorityMedium, collect: func(ctx context.Context) domain.CollectorResult {
		<-ctx.Done()
		return domain.CollectorResult{Success: true, Rates: twoRates(name)}
	}}
}
