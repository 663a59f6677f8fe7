package grpcapi

import (
	"github.com/LavaJover/mmk-rates-service/internal/domain"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthReporter publishes collector health over grpc.health.v1, one service per source.
type HealthReporter struct {
	server *health.Server
}

func NewHealthReporter(sources []domain.SourceInfo) *HealthReporter {
	srv := health.NewServer()
	srv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	for _, src := range sources {
		srv.SetServingStatus(src.Name, healthpb.HealthCheckResponse_UNKNOWN)
	}
	return &HealthReporter{server: srv}
}

func (r *HealthReporter) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, r.server)
}

func (r *HealthReporter) Report(report map[string]domain.CollectorHealth) {
	for source, h := range report {
		r.server.SetServingStatus(source, servingStatus(h.Status))
	}
}

// Shutdown flips every service to NOT_SERVING ahead of GracefulStop.
func (r *HealthReporter) Shutdown() {
	r.server.Shutdown()
}

func servingStatus(status domain.HealthStatus) healthpb.HealthCheckResponse_ServingStatus {
	switch status {
	case domain.HealthHealthy, domain.HealthDegraded:
		return healthpb.HealthCheckResponse_SERVING
	default:
		return healthpb.HealthCheckResponse_NOT_SERVING
	}
}
