package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	ratesdto "github.com/LavaJover/mmk-rates-service/internal/delivery/http/dto/rates"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/middleware"
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	uc  usecase.CollectionUsecase
	log *slog.Logger

	// baseCtx outlives the request; async runs stop when it is cancelled.
	baseCtx context.Context
	jobs    *sync.WaitGroup
}

// NewAdminHandler tracks async runs on jobs. A nil baseCtx means context.Background.
func NewAdminHandler(uc usecase.CollectionUsecase, log *slog.Logger, baseCtx context.Context, jobs *sync.WaitGroup) *AdminHandler {
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	if jobs == nil {
		jobs = new(sync.WaitGroup)
	}
	return &AdminHandler{uc: uc, log: log, baseCtx: baseCtx, jobs: jobs}
}

func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	rg.POST("/collect", h.TriggerCollection)
}

// TriggerCollection starts a manual run. With wait=true the summary is returned,
// otherwise the run continues in the background after the response.
func (h *AdminHandler) TriggerCollection(c *gin.Context) {
	logger := middleware.GetLogger(c)
	source := strings.TrimSpace(c.Query("source"))
	wait := c.Query("wait") == "true"

	if source != "" && !h.isRegistered(source) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown source: " + source})
		return
	}

	adminID, _ := middleware.GetAdminID(c)
	logger.Info("manual collection requested", "source", source, "wait", wait, "admin_id", adminID)

	if !wait {
		h.jobs.Add(1)
		go func() {
			defer h.jobs.Done()
			h.run(usecase.WithTrigger(h.baseCtx, usecase.TriggerManual), source)
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Collection started", "run": "async"})
		return
	}

	summary, err := h.collect(usecase.WithTrigger(c.Request.Context(), usecase.TriggerManual), source)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrUnknownSource):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, domain.ErrStoreUnavailable), errors.Is(err, domain.ErrNoCollectors):
			logger.Error("manual collection failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		default:
			logger.Error("manual collection failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Collection failed"})
		}
		return
	}
	c.JSON(http.StatusOK, ratesdto.ToCollectionSummaryResponse(summary))
}

func (h *AdminHandler) run(ctx context.Context, source string) {
	if _, err := h.collect(ctx, source); err != nil {
		h.log.Error("background manual collection failed", "source", source, "error", err)
	}
}

func (h *AdminHandler) collect(ctx context.Context, source string) (*domain.CollectionSummary, error) {
	if source == "" {
		return h.uc.CollectAll(ctx)
	}
	return h.uc.CollectSource(ctx, source)
}

func (h *AdminHandler) isRegistered(source string) bool {
	for _, s := range h.uc.Sources() {
		if strings.EqualFold(s.Name, source) {
			return true
		}
	}
	return false
}
