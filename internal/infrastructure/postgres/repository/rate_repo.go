package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/postgres/mappers"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/postgres/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var latestRateColumns = []string{
	"currency", "rate", "buy_rate", "sell_rate", "timestamp",
	"source", "source_url", "last_updated", "updated_at",
}

type DefaultRateRepository struct {
	DB  *gorm.DB
	now func() time.Time
}

func NewDefaultRateRepository(db *gorm.DB) *DefaultRateRepository {
	return &DefaultRateRepository{
		DB:  db,
		now: time.Now,
	}
}

func (r *DefaultRateRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from gorm.DB: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// StoreRates writes the rate log entries and the latest-rate rows in one transaction.
func (r *DefaultRateRepository) StoreRates(ctx context.Context, rates []domain.ExchangeRate) error {
	if len(rates) == 0 {
		return nil
	}
	rateModels, latestModels := buildRateModels(rates, r.now())

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertRateLog(tx, rateModels).Error; err != nil {
			return fmt.Errorf("failed to write rate log: %w", err)
		}
		if err := upsertLatestRates(tx, latestModels).Error; err != nil {
			return fmt.Errorf("failed to upsert latest rates: %w", err)
		}
		return nil
	})
}

// UpdateCollectionStatus applies every source's outcome of one run in a single transaction.
func (r *DefaultRateRepository) UpdateCollectionStatus(ctx context.Context, updates []domain.StatusUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, u := range updates {
			if err := upsertStatus(tx, u).Error; err != nil {
				return fmt.Errorf("failed to update status of %s: %w", u.Source, err)
			}
		}
		return nil
	})
}

func (r *DefaultRateRepository) GetCollectionStatuses(ctx context.Context) ([]domain.CollectionStatus, error) {
	var statusModels []models.CollectionStatusModel
	if err := r.DB.WithContext(ctx).Order("source").Find(&statusModels).Error; err != nil {
		return nil, err
	}

	statuses := make([]domain.CollectionStatus, len(statusModels))
	for i, m := range statusModels {
		statuses[i] = mappers.ToDomainCollectionStatus(m)
	}
	return statuses, nil
}

func (r *DefaultRateRepository) GetLatestRates(ctx context.Context, currency string, limit int) ([]domain.LatestRateDocument, error) {
	var latestModels []models.LatestRateModel
	if err := latestRatesQuery(r.DB.WithContext(ctx), currency, limit).Find(&latestModels).Error; err != nil {
		return nil, err
	}

	docs := make([]domain.LatestRateDocument, len(latestModels))
	for i, m := range latestModels {
		docs[i] = mappers.ToDomainLatestRate(m)
	}
	return docs, nil
}

func (r *DefaultRateRepository) GetHistoricalRates(ctx context.Context, query domain.HistoryQuery) ([]domain.RateDocument, error) {
	var rateModels []models.RateModel
	if err := historicalRatesQuery(r.DB.WithContext(ctx), query).Find(&rateModels).Error; err != nil {
		return nil, err
	}
	return toRateDocuments(rateModels), nil
}

func (r *DefaultRateRepository) GetRecentRates(ctx context.Context, source string, since time.Time, limit int) ([]domain.RateDocument, error) {
	var rateModels []models.RateModel
	err := r.DB.WithContext(ctx).
		Where("source = ? AND timestamp > ?", source, since).
		Order("timestamp DESC").
		Limit(limit).
		Find(&rateModels).Error
	if err != nil {
		return nil, err
	}
	return toRateDocuments(rateModels), nil
}

// buildRateModels dedupes by id so a single upsert never touches the same row twice.
func buildRateModels(rates []domain.ExchangeRate, now time.Time) ([]models.RateModel, []models.LatestRateModel) {
	rateIdx := make(map[string]int, len(rates))
	latestIdx := make(map[string]int, len(rates))
	rateModels := make([]models.RateModel, 0, len(rates))
	latestModels := make([]models.LatestRateModel, 0, len(rates))

	for _, rate := range rates {
		doc := mappers.ToGORMRate(domain.NewRateDocument(rate, now))
		if i, ok := rateIdx[doc.ID]; ok {
			rateModels[i] = doc
		} else {
			rateIdx[doc.ID] = len(rateModels)
			rateModels = append(rateModels, doc)
		}

		latest := mappers.ToGORMLatestRate(domain.NewLatestRateDocument(rate, now))
		if i, ok := latestIdx[latest.ID]; ok {
			if !latest.Timestamp.Before(latestModels[i].Timestamp) {
				latestModels[i] = latest
			}
		} else {
			latestIdx[latest.ID] = len(latestModels)
			latestModels = append(latestModels, latest)
		}
	}
	return rateModels, latestModels
}

func upsertRateLog(tx *gorm.DB, rateModels []models.RateModel) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(&rateModels)
}

func upsertLatestRates(tx *gorm.DB, latestModels []models.LatestRateModel) *gorm.DB {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(latestRateColumns),
	}).Create(&latestModels)
}

func upsertStatus(tx *gorm.DB, u domain.StatusUpdate) *gorm.DB {
	status := models.CollectionStatusModel{
		Source:   u.Source,
		LastRun:  u.RunAt,
		IsActive: true,
	}

	var assignments map[string]interface{}
	if u.Success {
		runAt := u.RunAt
		status.LastSuccess = &runAt
		assignments = map[string]interface{}{
			"last_run":             u.RunAt,
			"last_success":         u.RunAt,
			"consecutive_failures": 0,
			"last_error":           nil,
			"is_active":            true,
		}
	} else {
		msg := u.Error
		status.ConsecutiveFailures = 1
		status.LastError = &msg
		assignments = map[string]interface{}{
			"last_run":             u.RunAt,
			"consecutive_failures": gorm.Expr("collection_statuses.consecutive_failures + 1"),
			"last_error":           msg,
			"is_active":            true,
		}
	}

	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "source"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&status)
}

func latestRatesQuery(db *gorm.DB, currency string, limit int) *gorm.DB {
	q := db.Model(&models.LatestRateModel{})
	if currency != "" {
		q = q.Where("currency = ?", currency)
	}
	return q.Order("timestamp DESC").Limit(limit)
}

func historicalRatesQuery(db *gorm.DB, query domain.HistoryQuery) *gorm.DB {
	q := db.Model(&models.RateModel{}).
		Where("currency = ? AND timestamp >= ? AND timestamp <= ?", query.Currency, query.Start, query.End)
	if query.Source != "" {
		q = q.Where("source = ?", query.Source)
	}
	return q.Order("timestamp DESC").Limit(query.Limit)
}

func toRateDocuments(rateModels []models.RateModel) []domain.RateDocument {
	docs := make([]domain.RateDocument, len(rateModels))
	for i, m := range rateModels {
		docs[i] = mappers.ToDomainRate(m)
	}
	return docs
}
