package logger

import (
	"context"
	"encoding/json"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"gorm.io/gorm"
)

type HealthAlertEvent struct {
	ID        uint `gorm:"primaryKey"`
	AlertType string
	Message   string
	Sources   string
	Resolved  bool
	CreatedAt time.Time
}

func (HealthAlertEvent) TableName() string { return "health_alerts" }

type PGHealthAlertLogger struct {
	db *gorm.DB
}

func NewPGHealthAlertLogger(db *gorm.DB) *PGHealthAlertLogger {
	return &PGHealthAlertLogger{db: db}
}

func (l *PGHealthAlertLogger) LogAlert(ctx context.Context, alert domain.HealthAlert) error {
	event, err := NewHealthAlertEvent(alert)
	if err != nil {
		return err
	}
	return l.db.WithContext(ctx).Create(&event).Error
}

func NewHealthAlertEvent(alert domain.HealthAlert) (HealthAlertEvent, error) {
	sources := alert.Sources
	if sources == nil {
		sources = []string{}
	}
	raw, err := json.Marshal(sources)
	if err != nil {
		return HealthAlertEvent{}, err
	}
	return HealthAlertEvent{
		AlertType: alert.Type,
		Message:   alert.Message,
		Sources:   string(raw),
		CreatedAt: alert.CreatedAt,
	}, nil
}
