package httpapi

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"taskhub.org/internal/obs"
)

// GRPCHealth reports the service as SERVING on grpc.health.v1.Health while
// the readiness checker succeeds.
type GRPCHealth struct {
	server    *health.Server
	readiness ReadinessChecker
	interval  time.Duration
	logger    *slog.Logger
}

// NewGRPCHealth creates the health reporter. It starts NOT_SERVING until the
// first successful check.
func NewGRPCHealth(r ReadinessChecker, interval time.Duration, logger *slog.Logger) *GRPCHealth {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	h := &GRPCHealth{
		server:    health.NewServer(),
		readiness: r,
		interval:  interval,
		logger:    obs.ResolveLogger(logger),
	}
	h.set(healthpb.HealthCheckResponse_NOT_SERVING)
	return h
}

// Register attaches the health service to s.
func (h *GRPCHealth) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, h.server)
}

// Check runs one readiness check and updates the reported status.
func (h *GRPCHealth) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	if h.readiness != nil {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.readiness.Ping(ctx); err != nil {
			h.logger.WarnContext(ctx, "grpc health check failed", slog.String("error", err.Error()))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	h.set(status)
	return status
}

// Run checks readiness every interval until ctx is done, then marks the
// service NOT_SERVING.
func (h *GRPCHealth) Run(ctx context.Context) {
	h.Check(ctx)
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			h.server.Shutdown()
			return
		case <-ticker.C:
			h.Check(ctx)
		}
	}
}

func (h *GRPCHealth) set(status healthpb.HealthCheckResponse_ServingStatus) {
	h.server.SetServingStatus("", status)
	h.server.SetServingStatus(serviceName, status)
}
