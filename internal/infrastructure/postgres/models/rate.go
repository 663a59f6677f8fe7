package models

import "time"

type RateModel struct {
	ID               string `gorm:"primaryKey"`
	Currency         string `gorm:"index:idx_rates_currency_timestamp,priority:1"`
	Rate             float64
	BuyRate          *float64
	SellRate         *float64
	Timestamp        time.Time `gorm:"index:idx_rates_currency_timestamp,priority:2;index:idx_rates_source_timestamp,priority:2"`
	Source           string    `gorm:"index:idx_rates_source_timestamp,priority:1"`
	SourceURL        string
	LastUpdated      time.Time
	CollectorVersion string
	CreatedAt        time.Time
}

func (RateModel) TableName() string { return "rates" }

type LatestRateModel struct {
	ID          string `gorm:"primaryKey"`
	Currency    string `gorm:"index"`
	Rate        float64
	BuyRate     *float64
	SellRate    *float64
	Timestamp   time.Time `gorm:"index"`
	Source      string
	SourceURL   string
	LastUpdated time.Time
	UpdatedAt   time.Time
}

func (LatestRateModel) TableName() string { return "latest_rates" }

type CollectionStatusModel struct {
	Source              string `gorm:"primaryKey"`
	LastRun             time.Time
	LastSuccess         *time.Time
	ConsecutiveFailures int
	LastError           *string
	IsActive            bool
}

func (CollectionStatusModel) TableName() string { return "collection_statuses" }
