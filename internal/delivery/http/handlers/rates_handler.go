package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	ratesdto "github.com/LavaJover/mmk-rates-service/internal/delivery/http/dto/rates"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/middleware"
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type RatesHandler struct {
	uc usecase.CollectionUsecase
}

func NewRatesHandler(uc usecase.CollectionUsecase) *RatesHandler {
	return &RatesHandler{uc: uc}
}

func (h *RatesHandler) Register(rg *gin.RouterGroup) {
	rates := rg.Group("/rates")
	{
		rates.GET("/latest", h.GetLatest)
		rates.GET("/history", h.GetHistory)
	}
}

// GetLatest serves the newest rate per source, optionally for one currency.
func (h *RatesHandler) GetLatest(c *gin.Context) {
	rates, err := h.uc.GetLatestRates(c.Request.Context(), c.Query("currency"))
	if err != nil {
		middleware.GetLogger(c).Error("failed to get latest rates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get latest rates"})
		return
	}
	c.JSON(http.StatusOK, ratesdto.ToRateResponses(rates))
}

func (h *RatesHandler) GetHistory(c *gin.Context) {
	query := domain.HistoryQuery{
		Currency: c.Query("currency"),
		Source:   c.Query("source"),
	}

	var err error
	if query.Start, err = parseTimeParam(c, "start"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if query.End, err = parseTimeParam(c, "end"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if raw := c.Query("limit"); raw != "" {
		if query.Limit, err = strconv.Atoi(raw); err != nil || query.Limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
	}

	docs, err := h.uc.GetHistoricalRates(c.Request.Context(), query)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidQuery) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		middleware.GetLogger(c).Error("failed to get historical rates", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get historical rates"})
		return
	}
	c.JSON(http.StatusOK, ratesdto.ToHistoricalRateResponses(docs))
}

func parseTimeParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, errors.New(name + " is required")
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, errors.New(name + " must be an RFC3339 timestamp")
	}
	return t, nil
}
