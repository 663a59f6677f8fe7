package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/LavaJover/mmk-rates-service/internal/app/background"
	"github.com/LavaJover/mmk-rates-service/internal/app/setup"
	"github.com/LavaJover/mmk-rates-service/internal/config"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/grpcapi"
	deliveryhttp "github.com/LavaJover/mmk-rates-service/internal/delivery/http"
	"github.com/LavaJover/mmk-rates-service/internal/delivery/http/middleware"
	"github.com/LavaJover/mmk-rates-service/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"google.golang.org/grpc"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("failed to load .env")
	}
	// Reading config
	cfg := config.MustLoad()
	slogger := logger.New(cfg.LogConfig.LogLevel, cfg.LogConfig.LogFormat)

	if err := run(cfg, slogger); err != nil {
		slogger.Error("rates service stopped", "error", err)
		os.Exit(1)
	}
}

// run owns every resource so that deferred cleanup happens on all exit paths.
func run(cfg *config.RatesConfig, slogger *slog.Logger) error {
	deps, err := setup.InitializeDependencies(cfg, slogger)
	if err != nil {
		return fmt.Errorf("failed to init dependencies: %w", err)
	}
	defer deps.Close()

	ucs, err := setup.InitializeUseCases(deps)
	if err != nil {
		return fmt.Errorf("failed to init usecases: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// gRPC health
	healthReporter := grpcapi.NewHealthReporter(ucs.CollectionUsecase.Sources())
	grpcServer := grpc.NewServer()
	healthReporter.Register(grpcServer)

	lis, err := net.Listen("tcp", fmt.Sprintf("%s:%s", cfg.GRPCServer.Host, cfg.GRPCServer.Port))
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}

	// HTTP
	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}
	ipLimiter, err := middleware.NewIPLimiter(cfg.RateLimit.Rate)
	if err != nil {
		return fmt.Errorf("failed to init rate limiter: %w", err)
	}
	var adminJobs sync.WaitGroup
	router := deliveryhttp.NewRouter(deliveryhttp.RouterDeps{
		Logger:      slogger,
		Collection:  ucs.CollectionUsecase,
		Health:      ucs.HealthUsecase,
		Limiter:     ipLimiter,
		Gatherer:    deps.Registry,
		JWTSecret:   cfg.Admin.JWTSecret,
		AdminIDs:    cfg.Admin.AdminIDs,
		BaseContext: ctx,
		Jobs:        &adminJobs,
	})
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%s", cfg.HTTPServer.Host, cfg.HTTPServer.Port),
		Handler: router,
	}

	serverErrs := make(chan error, 2)
	go func() {
		slogger.Info("gRPC server started", "addr", lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			serverErrs <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		slogger.Info("HTTP server started", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrs <- fmt.Errorf("http server: %w", err)
		}
	}()

	// Background tasks
	tasks := background.NewBackgroundTasks(ucs.CollectionUsecase, ucs.HealthUsecase, deps.Metrics, healthReporter, slogger)
	tasks.Alerts = deps.Alerts
	tasks.CollectionInterval = cfg.Collection.Interval
	tasks.HealthInterval = cfg.Health.Interval
	tasks.RunOnStart = cfg.Collection.RunOnStart
	tasks.StartAll(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		slogger.Info("shutting down")
	case serveErr = <-serverErrs:
		slogger.Error("server failed, shutting down", "error", serveErr)
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPServer.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slogger.Error("http shutdown failed", "error", err)
	}

	healthReporter.Shutdown()
	grpcServer.GracefulStop()

	// Collection runs observe ctx, so these return once in-flight collectors give up.
	tasks.Wait()
	adminJobs.Wait()

	return serveErr
}
