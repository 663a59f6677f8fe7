package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

const (
	latestKeyPrefix = "mmk:latest:"
	// generationKey is bumped after every store; entries are keyed by the generation
	// seen before the repository read, so a slow reader can only fill a retired slot.
	generationKey = latestKeyPrefix + "gen"
)

// LatestRatesCache serves latest-rate reads from redis and retires them whenever new rates are stored.
// Redis failures never fail a call; the underlying repository is authoritative.
type LatestRatesCache struct {
	domain.RateRepository
	client *redis.Client
	ttl    time.Duration
	log    *slog.Logger
}

func NewRedisClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

func NewLatestRatesCache(repo domain.RateRepository, client *redis.Client, ttl time.Duration, log *slog.Logger) *LatestRatesCache {
	return &LatestRatesCache{
		RateRepository: repo,
		client:         client,
		ttl:            ttl,
		log:            log.With("component", "latest_rates_cache"),
	}
}

func latestKey(generation int64, currency string, limit int) string {
	if currency == "" {
		currency = "ALL"
	}
	return fmt.Sprintf("%s%d:%s:%d", latestKeyPrefix, generation, currency, limit)
}

func (c *LatestRatesCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func (c *LatestRatesCache) GetLatestRates(ctx context.Context, currency string, limit int) ([]domain.LatestRateDocument, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.log.Warn("latest rates cache unavailable", "error", err)
		return c.RateRepository.GetLatestRates(ctx, currency, limit)
	}
	key := latestKey(gen, currency, limit)

	data, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var docs []domain.LatestRateDocument
		if jsonErr := json.Unmarshal(data, &docs); jsonErr == nil {
			return docs, nil
		}
		c.log.Warn("dropping unreadable latest rates cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("latest rates cache read failed", "key", key, "error", err)
	}

	docs, err := c.RateRepository.GetLatestRates(ctx, currency, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(docs); err == nil {
		if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
			c.log.Warn("latest rates cache write failed", "key", key, "error", err)
		}
	}
	return docs, nil
}

func (c *LatestRatesCache) StoreRates(ctx context.Context, rates []domain.ExchangeRate) error {
	if err := c.RateRepository.StoreRates(ctx, rates); err != nil {
		return err
	}
	// Retired entries are left to expire with their TTL.
	if err := c.client.Incr(ctx, generationKey).Err(); err != nil {
		c.log.Warn("latest rates cache invalidation failed", "error", err)
	}
	return nil
}
