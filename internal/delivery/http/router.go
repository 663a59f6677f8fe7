package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/handlers"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/middleware"
	"github.com/LavaJover/mmk-rates-service/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/ulule/limiter/v3"
)

type RouterDeps struct {
	Logger     *slog.Logger
	Collection usecase.CollectionUsecase
	Health     usecase.HealthUsecase
	Limiter    *limiter.Limiter
	Gatherer   prometheus.Gatherer
	JWTSecret  string
	AdminIDs   []string

	// BaseContext and Jobs bound the async admin runs to the process lifetime.
	BaseContext context.Context
	Jobs        *sync.WaitGroup
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Logger), middleware.Recovery())

	r.GET("/healthz", handlers.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	if deps.Limiter != nil {
		v1.Use(middleware.RateLimit(deps.Limiter))
	}

	handlers.NewRatesHandler(deps.Collection).Register(v1)
	handlers.NewCollectorsHandler(deps.Collection, deps.Health).Register(v1)

	admin := v1.Group("/admin", middleware.AdminAuth(deps.JWTSecret, deps.AdminIDs))
	handlers.NewAdminHandler(deps.Collection, deps.Logger, deps.BaseContext, deps.Jobs).Register(admin)

	return r
}
