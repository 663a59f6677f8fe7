package rates

import (
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
)

type RateResponse struct {
	Currency    string    `json:"currency"`
	Rate        float64   `json:"rate"`
	BuyRate     *float64  `json:"buy_rate,omitempty"`
	SellRate    *float64  `json:"sell_rate,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source"`
	SourceURL   string    `json:"source_url"`
	LastUpdated time.Time `json:"last_updated"`
}

type HistoricalRateResponse struct {
	ID string `json:"id"`
	RateResponse
	CollectorVersion string    `json:"collector_version"`
	CreatedAt        time.Time `json:"created_at"`
}

type SourceResponse struct {
	Name     string `json:"name"`
	Priority string `json:"priority"`
}

type CollectorHealthResponse struct {
	Source      string     `json:"source"`
	Status      string     `json:"status"`
	LastSuccess *time.Time `json:"last_success"`
	SuccessRate float64    `json:"success_rate"`
	RecordCount int        `json:"record_count"`
	CheckedAt   time.Time  `json:"checked_at"`
}

type CollectionStatusResponse struct {
	Source              string     `json:"source"`
	LastRun             time.Time  `json:"last_run"`
	LastSuccess         *time.Time `json:"last_success"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           *string    `json:"last_error"`
	IsActive            bool       `json:"is_active"`
}

type CollectorResultResponse struct {
	Success          bool     `json:"success"`
	RateCount        int      `json:"rate_count"`
	Error            string   `json:"error,omitempty"`
	Method           string   `json:"method,omitempty"`
	CollectionTimeMs int64    `json:"collection_time_ms"`
	Warnings         []string `json:"warnings,omitempty"`
}

type CollectionSummaryResponse struct {
	RunID        string                             `json:"run_id"`
	SuccessCount int                                `json:"success_count"`
	FailureCount int                                `json:"failure_count"`
	TotalRates   int                                `json:"total_rates"`
	Results      map[string]CollectorResultResponse `json:"results"`
	Errors       map[string]string                  `json:"errors"`
	StartedAt    time.Time                          `json:"started_at"`
	DurationMs   int64                              `json:"duration_ms"`
}

func ToRateResponse(r domain.ExchangeRate) RateResponse {
	return RateResponse{
		Currency:    r.Currency,
		Rate:        r.Rate,
		BuyRate:     r.BuyRate,
		SellRate:    r.SellRate,
		Timestamp:   r.Timestamp,
		Source:      r.Source,
		SourceURL:   r.SourceURL,
		LastUpdated: r.LastUpdated,
	}
}

func ToRateResponses(rates []domain.ExchangeRate) []RateResponse {
	out := make([]RateResponse, len(rates))
	for i, r := range rates {
		out[i] = ToRateResponse(r)
	}
	return out
}

func ToHistoricalRateResponses(docs []domain.RateDocument) []HistoricalRateResponse {
	out := make([]HistoricalRateResponse, len(docs))
	for i, d := range docs {
		out[i] = HistoricalRateResponse{
			ID:               d.ID,
			RateResponse:     ToRateResponse(d.ExchangeRate),
			CollectorVersion: d.Metadata.CollectorVersion,
			CreatedAt:        d.CreatedAt,
		}
	}
	return out
}

func ToSourceResponses(sources []domain.SourceInfo) []SourceResponse {
	out := make([]SourceResponse, len(sources))
	for i, s := range sources {
		out[i] = SourceResponse{Name: s.Name, Priority: s.Priority.String()}
	}
	return out
}

func ToCollectorHealthResponses(report []domain.CollectorHealth) []CollectorHealthResponse {
	out := make([]CollectorHealthResponse, len(report))
	for i, h := range report {
		out[i] = CollectorHealthResponse{
			Source:      h.Source,
			Status:      string(h.Status),
			LastSuccess: h.LastSuccess,
			SuccessRate: h.SuccessRate,
			RecordCount: h.RecordCount,
			CheckedAt:   h.CheckedAt,
		}
	}
	return out
}

func ToCollectionStatusResponses(statuses []domain.CollectionStatus) []CollectionStatusResponse {
	out := make([]CollectionStatusResponse, len(statuses))
	for i, s := range statuses {
		out[i] = CollectionStatusResponse{
			Source:              s.Source,
			LastRun:             s.LastRun,
			LastSuccess:         s.LastSuccess,
			ConsecutiveFailures: s.ConsecutiveFailures,
			LastError:           s.LastError,
			IsActive:            s.IsActive,
		}
	}
	return out
}

func ToCollectionSummaryResponse(s *domain.CollectionSummary) CollectionSummaryResponse {
	results := make(map[string]CollectorResultResponse, len(s.Results))
	for name, r := range s.Results {
		results[name] = CollectorResultResponse{
			Success:          r.Success,
			RateCount:        len(r.Rates),
			Error:            r.Error,
			Method:           string(r.Metadata.Method),
			CollectionTimeMs: r.Metadata.CollectionTime,
			Warnings:         r.Metadata.Warnings,
		}
	}

	errs := s.Errors
	if errs == nil {
		errs = map[string]string{}
	}
	return CollectionSummaryResponse{
		RunID:        s.RunID,
		SuccessCount: s.SuccessCount,
		FailureCount: s.FailureCount,
		TotalRates:   s.TotalRates,
		Results:      results,
		Errors:       errs,
		StartedAt:    s.StartedAt,
		DurationMs:   s.Duration.Milliseconds(),
	}
}
