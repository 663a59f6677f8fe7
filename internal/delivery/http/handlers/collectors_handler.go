package handlers

import (
	"net/http"

	ratesdto "github.com/LavaJover/mmk-rates-service/internal/delivery/http/dto/rates"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/middleware"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type CollectorsHandler struct {
	collection usecase.CollectionUsecase
	health     usecase.HealthUsecase
}

func NewCollectorsHandler(collection usecase.CollectionUsecase, health usecase.HealthUsecase) *CollectorsHandler {
	return &CollectorsHandler{collection: collection, health: health}
}

func (h *CollectorsHandler) Register(rg *gin.RouterGroup) {
	collectors := rg.Group("/collectors")
	{
		collectors.GET("", h.List)
		collectors.GET("/health", h.Health)
		collectors.GET("/status", h.Status)
	}
}

func (h *CollectorsHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, ratesdto.ToSourceResponses(h.collection.Sources()))
}

func (h *CollectorsHandler) Health(c *gin.Context) {
	report, err := h.health.Evaluate(c.Request.Context())
	if err != nil {
		middleware.GetLogger(c).Error("failed to evaluate collector health", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate collector health"})
		return
	}
	c.JSON(http.StatusOK, ratesdto.ToCollectorHealthResponses(h.health.Ordered(report)))
}

// Status reports the persisted per-source bookkeeping of the last runs.
func (h *CollectorsHandler) Status(c *gin.Context) {
	statuses, err := h.collection.GetCollectionStatuses(c.Request.Context())
	if err != nil {
		middleware.GetLogger(c).Error("failed to get collection statuses", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get collection statuses"})
		return
	}
	c.JSON(http.StatusOK, ratesdto.ToCollectionStatusResponses(statuses))
}
