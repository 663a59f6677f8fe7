package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type CollectionUsecaseSuite struct {
	suite.Suite
	repo      *mockRateRepository
	publisher *mockRunEventPublisher
	runLog    *mockRunLogger
	metrics   *metrics.CollectorMetrics
	ctx       context.Context
}

func (s *CollectionUsecaseSuite) SetupTest() {
	s.repo = new(mockRateRepository)
	s.publisher = new(mockRunEventPublisher)
	s.runLog = new(mockRunLogger)
	s.metrics = metrics.NewCollectorMetrics(prometheus.NewRegistry())
	s.ctx = context.Background()
}

func (s *CollectionUsecaseSuite) newUsecase(collectors ...domain.RateCollector) *DefaultCollectionUsecase {
	return NewCollectionUsecase(s.repo, collectors,
		WithCollectorTimeout(100*time.Millisecond),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithMetrics(s.metrics),
		WithPublisher(s.publisher),
		WithRunLog(s.runLog),
	)
}

func (s *CollectionUsecaseSuite) expectRunSideEffects(trigger string) {
	s.runLog.On("LogRun", mock.Anything, trigger, mock.Anything).Return(nil).Once()
	s.publisher.On("PublishRunCompleted", mock.Anything, trigger, mock.Anything).Return(nil).Once()
}

func (s *CollectionUsecaseSuite) TestCollectAll_MixedOutcomes() {
	uc := s.newUsecase(
		succeeding("CBM", domain.PriorityHigh),
		succeeding("KBZ", domain.PriorityMedium),
		succeeding("Yoma", domain.PriorityMedium),
		succeeding("Binance P2P", domain.PriorityLow),
		failing("AYA", "No rates found on AYA website"),
		hanging("CB Bank"),
	)

	s.repo.On("Ping", mock.Anything).Return(nil).Once()
	s.repo.On("StoreRates", mock.Anything, mock.Anything).Return(nil).Times(4)
	var updates []domain.StatusUpdate
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { updates = args.Get(1).([]domain.StatusUpdate) }).
		Return(nil).Once()
	s.expectRunSideEffects(TriggerScheduled)

	summary, err := uc.CollectAll(s.ctx)
	s.Require().NoError(err)

	s.NotEmpty(summary.RunID)
	s.Equal(4, summary.SuccessCount)
	s.Equal(2, summary.FailureCount)
	s.Equal(8, summary.TotalRates)
	s.Len(summary.Results, 6)
	s.Equal("No rates found on AYA website", summary.Errors["AYA"])
	s.Equal("CB Bank collector timed out after 100ms", summary.Errors["CB Bank"])
	s.False(summary.Results["CB Bank"].Success)

	s.Len(updates, 6)
	for _, u := range updates {
		_, failed := summary.Errors[u.Source]
		s.Equal(!failed, u.Success, u.Source)
		s.Equal(summary.StartedAt, u.RunAt)
	}

	s.Equal(1.0, testutil.ToFloat64(s.metrics.RunsTotal.WithLabelValues("partial")))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.CollectorResultsTotal.WithLabelValues("CB Bank", "failure")))
	s.Equal(2.0, testutil.ToFloat64(s.metrics.RatesCollectedTotal.WithLabelValues("KBZ")))

	s.repo.AssertExpectations(s.T())
	s.publisher.AssertExpectations(s.T())
	s.runLog.AssertExpectations(s.T())
}

func (s *CollectionUsecaseSuite) TestCollectAll_StoreFailureDoesNotFailRun() {
	uc := s.newUsecase(succeeding("KBZ", domain.PriorityMedium), succeeding("AYA", domain.PriorityMedium))

	s.repo.On("Ping", mock.Anything).Return(nil)
	s.repo.On("StoreRates", mock.Anything, mock.MatchedBy(func(r []domain.ExchangeRate) bool { return r[0].Source == "KBZ" })).Return(errWriteFailed)
	s.repo.On("StoreRates", mock.Anything, mock.MatchedBy(func(r []domain.ExchangeRate) bool { return r[0].Source == "AYA" })).Return(nil)
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.Anything).Return(nil)
	s.expectRunSideEffects(TriggerScheduled)

	summary, err := uc.CollectAll(s.ctx)
	s.Require().NoError(err)

	s.Equal(2, summary.SuccessCount)
	s.Equal(0, summary.FailureCount)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.StoreErrorsTotal.WithLabelValues("KBZ")))
	s.Equal(0.0, testutil.ToFloat64(s.metrics.StoreErrorsTotal.WithLabelValues("AYA")))
}

func (s *CollectionUsecaseSuite) TestCollectAll_SideEffectFailuresAreNotFatal() {
	uc := s.newUsecase(failing("AYA", "boom"))

	s.repo.On("Ping", mock.Anything).Return(nil)
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.Anything).Return(errWriteFailed)
	s.runLog.On("LogRun", mock.Anything, mock.Anything, mock.Anything).Return(errWriteFailed)
	s.publisher.On("PublishRunCompleted", mock.Anything, mock.Anything, mock.Anything).Return(errWriteFailed)

	summary, err := uc.CollectAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.FailureCount)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.RunsTotal.WithLabelValues("failed")))
	s.repo.AssertNotCalled(s.T(), "StoreRates", mock.Anything, mock.Anything)
}

func (s *CollectionUsecaseSuite) TestCollectAll_NoCollectors() {
	uc := s.newUsecase()

	_, err := uc.CollectAll(s.ctx)
	s.ErrorIs(err, domain.ErrNoCollectors)
	s.repo.AssertNotCalled(s.T(), "Ping", mock.Anything)
}

func (s *CollectionUsecaseSuite) TestCollectAll_StoreUnavailable() {
	called := false
	uc := s.newUsecase(&fakeCollector{name: "KBZ", collect: func(context.Context) domain.CollectorResult {
		called = true
		return domain.CollectorResult{}
	}})
	s.repo.On("Ping", mock.Anything).Return(errors.New("connection refused"))

	_, err := uc.CollectAll(s.ctx)
	s.ErrorIs(err, domain.ErrStoreUnavailable)
	s.False(called)
}

func (s *CollectionUsecaseSuite) TestCollectAll_StuckCollectorTimesOut() {
	release := make(chan struct{})
	defer close(release)
	uc := s.newUsecase(succeeding("KBZ", domain.PriorityMedium), stuck("Stuck", release))
	s.repo.On("Ping", mock.Anything).Return(nil).Once()
	s.repo.On("StoreRates", mock.Anything, mock.Anything).Return(nil).Once()
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.Anything).Return(nil).Once()
	s.expectRunSideEffects(TriggerScheduled)

	start := time.Now()
	summary, err := uc.CollectAll(s.ctx)
	elapsed := time.Since(start)

	s.Require().NoError(err)
	s.Less(elapsed, time.Second)
	s.GreaterOrEqual(elapsed, 100*time.Millisecond)
	s.Equal(1, summary.SuccessCount)
	s.Equal(1, summary.FailureCount)
	s.Equal(2, summary.TotalRates)
	s.Contains(summary.Errors["Stuck"], "timed out")
	s.Equal("Stuck collector timed out after 100ms", summary.Errors["Stuck"])
	s.False(summary.Results["Stuck"].Success)
	s.Empty(summary.Results["Stuck"].Rates)
	s.repo.AssertExpectations(s.T())
}

func (s *CollectionUsecaseSuite) TestCollectAll_RecoversPanickingCollector() {
	uc := s.newUsecase(&fakeCollector{name: "KBZ", collect: func(context.Context) domain.CollectorResult {
		panic("nil map")
	}})
	s.repo.On("Ping", mock.Anything).Return(nil)
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.Anything).Return(nil)
	s.expectRunSideEffects(TriggerScheduled)

	summary, err := uc.CollectAll(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, summary.FailureCount)
	s.Contains(summary.Errors["KBZ"], "panicked")
}

func (s *CollectionUsecaseSuite) TestCollectSource() {
	uc := s.newUsecase(succeeding("CBM", domain.PriorityHigh), succeeding("KBZ", domain.PriorityMedium))
	s.repo.On("Ping", mock.Anything).Return(nil)
	s.repo.On("StoreRates", mock.Anything, mock.Anything).Return(nil).Once()
	s.repo.On("UpdateCollectionStatus", mock.Anything, mock.MatchedBy(func(u []domain.StatusUpdate) bool {
		return len(u) == 1 && u[0].Source == "KBZ"
	})).Return(nil).Once()
	s.expectRunSideEffects(TriggerManual)

	summary, err := uc.CollectSource(WithTrigger(s.ctx, TriggerManual), "kbz")
	s.Require().NoError(err)
	s.Len(summary.Results, 1)
	s.Contains(summary.Results, "KBZ")
	s.repo.AssertExpectations(s.T())
}

func (s *CollectionUsecaseSuite) TestCollectSource_Unknown() {
	uc := s.newUsecase(succeeding("CBM", domain.PriorityHigh))

	_, err := uc.CollectSource(s.ctx, "Nope")
	s.ErrorIs(err, domain.ErrUnknownSource)
}

func (s *CollectionUsecaseSuite) TestGetLatestRates_UppercasesAndCaps() {
	uc := s.newUsecase()
	docs := []domain.LatestRateDocument{{ID: "KBZ_USD", ExchangeRate: domain.ExchangeRate{Currency: "USD", Rate: 2100, Source: "KBZ"}}}
	s.repo.On("GetLatestRates", mock.Anything, "USD", LatestRatesLimit).Return(docs, nil).Once()

	rates, err := uc.GetLatestRates(s.ctx, " usd ")
	s.Require().NoError(err)
	s.Equal([]domain.ExchangeRate{docs[0].ExchangeRate}, rates)
}

func (s *CollectionUsecaseSuite) TestGetLatestRates_EmptyIsNotAnError() {
	uc := s.newUsecase()
	s.repo.On("GetLatestRates", mock.Anything, "", LatestRatesLimit).Return(nil, nil).Once()

	rates, err := uc.GetLatestRates(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(rates)
}

func (s *CollectionUsecaseSuite) TestGetHistoricalRates() {
	uc := s.newUsecase()
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	start := end.Add(-24 * time.Hour)
	want := domain.HistoryQuery{Currency: "USD", Start: start, End: end, Source: "CBM", Limit: HistoricalRatesLimit}
	s.repo.On("GetHistoricalRates", mock.Anything, want).Return([]domain.RateDocument{{ID: "x"}}, nil).Once()

	docs, err := uc.GetHistoricalRates(s.ctx, domain.HistoryQuery{Currency: "usd", Start: start, End: end, Source: "CBM"})
	s.Require().NoError(err)
	s.Len(docs, 1)
}

func (s *CollectionUsecaseSuite) TestGetHistoricalRates_InvalidRange() {
	uc := s.newUsecase()
	now := time.Now()

	_, err := uc.GetHistoricalRates(s.ctx, domain.HistoryQuery{Currency: "USD", Start: now, End: now.Add(-time.Hour)})
	s.ErrorIs(err, domain.ErrInvalidQuery)
	s.repo.AssertNotCalled(s.T(), "GetHistoricalRates", mock.Anything, mock.Anything)
}

func (s *CollectionUsecaseSuite) TestGetCollectionStatuses() {
	uc := s.newUsecase()
	msg := "timeout"
	s.repo.On("GetCollectionStatuses", mock.Anything).Return([]domain.CollectionStatus{
		{Source: "AYA", ConsecutiveFailures: 3, LastError: &msg, IsActive: true},
	}, nil).Once()

	statuses, err := uc.GetCollectionStatuses(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(statuses, 1)
	s.Equal(3, statuses[0].ConsecutiveFailures)

	s.repo.On("GetCollectionStatuses", mock.Anything).Return(nil, errWriteFailed).Once()
	_, err = uc.GetCollectionStatuses(s.ctx)
	s.ErrorIs(err, errWriteFailed)
}

func (s *CollectionUsecaseSuite) TestSources_PriorityOrder() {
	uc := s.newUsecase(
		succeeding("Binance P2P", domain.PriorityLow),
		succeeding("KBZ", domain.PriorityMedium),
		succeeding("CBM", domain.PriorityHigh),
		succeeding("AYA", domain.PriorityMedium),
	)

	s.Equal([]domain.SourceInfo{
		{Name: "CBM", Priority: domain.PriorityHigh},
		{Name: "KBZ", Priority: domain.PriorityMedium},
		{Name: "AYA", Priority: domain.PriorityMedium},
		{Name: "Binance P2P", Priority: domain.PriorityLow},
	}, uc.Sources())
}

func TestCollectionUsecaseSuite(t *testing.T) {
	suite.Run(t, new(CollectionUsecaseSuite))
}

var errWriteFailed = errors.New("write failed")

func TestCollectorTimeoutError(t *testing.T) {
	err := &CollectorTimeoutError{Source: "CBM", After: 30 * time.Second}

	assert.EqualError(t, err, "CBM collector timed out after 30s")
	assert.ErrorIs(t, err, domain.ErrCollectorTimeout)
}
