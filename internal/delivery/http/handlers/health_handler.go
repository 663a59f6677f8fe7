package handlers

import (
	"net/http"
	"time"

	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"github.com/gin-gonic/gin"
)

const ServiceName = "mmk-rates"

func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"service":   ServiceName,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   domain.CollectorVersion,
	})
}
