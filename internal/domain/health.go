package domain

import "time"

type HealthStatus string

const (
	HealthHealthy  HealthStatus = "healthy"
	HealthDegraded HealthStatus = "degraded"
	HealthDown     HealthStatus = "down"
)

type CollectorHealth struct {
	Source      string
	Status      HealthStatus
	LastSuccess *time.Time
	SuccessRate float64
	RecordCount int
	CheckedAt   time.Time
}

const AlertCollectorsDown = "collectors_down"

// HealthAlert is raised when the health check finds sources down.
type HealthAlert struct {
	Type      string
	Message   string
	Sources   []string
	CreatedAt time.Time
}
