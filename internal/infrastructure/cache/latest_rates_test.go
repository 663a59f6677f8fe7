package cache

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockRateRepository struct {
	mock.Mock
	domain.RateRepository
}

func (m *mockRateRepository) GetLatestRates(ctx context.Context, currency string, limit int) ([]domain.LatestRateDocument, error) {
	args := m.Called(ctx, currency, limit)
	docs, _ := args.Get(0).([]domain.LatestRateDocument)
	return docs, args.Error(1)
}

func (m *mockRateRepository) StoreRates(ctx context.Context, rates []domain.ExchangeRate) error {
	return m.Called(ctx, rates).Error(0)
}

// unreachableClient points at a closed port so every redis call fails fast.
func unreachableClient() *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestCache(t *testing.T, repo domain.RateRepository) (*LatestRatesCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewLatestRatesCache(repo, client, time.Minute, discardLogger()), mr
}

func latestDocs(rate float64) []domain.LatestRateDocument {
	return []domain.LatestRateDocument{{ID: "KBZ_USD", ExchangeRate: domain.ExchangeRate{Currency: "USD", Rate: rate, Source: "KBZ"}}}
}

func TestLatestKey(t *testing.T) {
	assert.Equal(t, "mmk:latest:0:USD:50", latestKey(0, "USD", 50))
	assert.Equal(t, "mmk:latest:3:ALL:50", latestKey(3, "", 50))
}

func TestGetLatestRates_ServesRepeatReadsFromRedis(t *testing.T) {
	repo := new(mockRateRepository)
	repo.On("GetLatestRates", mock.Anything, "USD", 50).Return(latestDocs(2100), nil).Once()
	c, mr := newTestCache(t, repo)

	first, err := c.GetLatestRates(context.Background(), "USD", 50)
	require.NoError(t, err)
	second, err := c.GetLatestRates(context.Background(), "USD", 50)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, mr.Exists(latestKey(0, "USD", 50)))
	assert.Equal(t, time.Minute, mr.TTL(latestKey(0, "USD", 50)))
	repo.AssertExpectations(t)
}

func TestStoreRates_RetiresCachedEntries(t *testing.T) {
	repo := new(mockRateRepository)
	repo.On("GetLatestRates", mock.Anything, "USD", 50).Return(latestDocs(2100), nil).Once()
	repo.On("StoreRates", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("GetLatestRates", mock.Anything, "USD", 50).Return(latestDocs(2150), nil).Once()
	c, _ := newTestCache(t, repo)
	ctx := context.Background()

	_, err := c.GetLatestRates(ctx, "USD", 50)
	require.NoError(t, err)
	require.NoError(t, c.StoreRates(ctx, []domain.ExchangeRate{{Currency: "USD", Rate: 2150, Source: "KBZ"}}))
	got, err := c.GetLatestRates(ctx, "USD", 50)

	require.NoError(t, err)
	assert.Equal(t, 2150.0, got[0].Rate)
	repo.AssertExpectations(t)
}

func TestGetLatestRates_ReadOverlappingStoreDoesNotPinStaleRates(t *testing.T) {
	repo := new(mockRateRepository)
	c, _ := newTestCache(t, repo)
	ctx := context.Background()

	repo.On("StoreRates", mock.Anything, mock.Anything).Return(nil).Once()
	// The first read loads the old set, and the store commits and invalidates before
	// the read writes it back to redis.
	repo.On("GetLatestRates", mock.Anything, "USD", 50).
		Run(func(mock.Arguments) {
			require.NoError(t, c.StoreRates(ctx, []domain.ExchangeRate{{Currency: "USD", Rate: 2150, Source: "KBZ"}}))
		}).
		Return(latestDocs(2100), nil).Once()
	repo.On("GetLatestRates", mock.Anything, "USD", 50).Return(latestDocs(2150), nil).Once()

	stale, err := c.GetLatestRates(ctx, "USD", 50)
	require.NoError(t, err)
	assert.Equal(t, 2100.0, stale[0].Rate)

	fresh, err := c.GetLatestRates(ctx, "USD", 50)
	require.NoError(t, err)
	assert.Equal(t, 2150.0, fresh[0].Rate)
	repo.AssertExpectations(t)
}

func TestGetLatestRates_FallsBackToRepositoryWhenRedisIsDown(t *testing.T) {
	repo := new(mockRateRepository)
	docs := []domain.LatestRateDocument{{ID: "KBZ_USD", ExchangeRate: domain.ExchangeRate{Currency: "USD", Rate: 2100, Source: "KBZ"}}}
	repo.On("GetLatestRates", mock.Anything, "USD", 50).Return(docs, nil).Once()

	c := NewLatestRatesCache(repo, unreachableClient(), time.Minute, discardLogger())
	got, err := c.GetLatestRates(context.Background(), "USD", 50)

	require.NoError(t, err)
	assert.Equal(t, docs, got)
	repo.AssertExpectations(t)
}

func TestGetLatestRates_PropagatesRepositoryError(t *testing.T) {
	repo := new(mockRateRepository)
	repo.On("GetLatestRates", mock.Anything, "", 10).Return(nil, assert.AnError).Once()

	c := NewLatestRatesCache(repo, unreachableClient(), time.Minute, discardLogger())
	_, err := c.GetLatestRates(context.Background(), "", 10)

	assert.ErrorIs(t, err, assert.AnError)
}

func TestStoreRates_IgnoresInvalidationFailure(t *testing.T) {
	repo := new(mockRateRepository)
	rates := []domain.ExchangeRate{{Currency: "USD", Rate: 2100, Source: "KBZ"}}
	repo.On("StoreRates", mock.Anything, rates).Return(nil).Once()

	c := NewLatestRatesCache(repo, unreachableClient(), time.Minute, discardLogger())

	assert.NoError(t, c.StoreRates(context.Background(), rates))
	repo.AssertExpectations(t)
}

func TestStoreRates_PropagatesRepositoryError(t *testing.T) {
	repo := new(mockRateRepository)
	repo.On("StoreRates", mock.Anything, mock.Anything).Return(assert.AnError).Once()

	c := NewLatestRatesCache(repo, unreachableClient(), time.Minute, discardLogger())

	assert.ErrorIs(t, c.StoreRates(context.Background(), nil), assert.AnError)
}
