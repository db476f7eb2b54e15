package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/common"
	"github.com/skalingclouds/naitive-engage-suite-sub000/internal/core/rules"
)

// HealthService is the gRPC service name reported alongside the overall
// ("") status.
const HealthService = "paystub.Analysis"

const readinessTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":             "ok",
		"rulesEngineVersion": rules.Version,
	})
}

// Ready runs every readiness check and returns the failures by name.
func (s *Server) Ready(ctx context.Context) map[string]string {
	failed := make(map[string]string)
	for _, c := range s.checks {
		cctx, cancel := context.WithTimeout(ctx, readinessTimeout)
		err := c.Check(cctx)
		cancel()
		if err != nil {
			failed[c.Name] = err.Error()
		}
	}
	return failed
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	failed := s.Ready(r.Context())
	if len(failed) > 0 {
		s.log(r.Context()).Warn("http.ready.failed", "checks", failed)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "failed": failed})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}

// NewGRPCServer builds a gRPC server exposing the standard health service.
// Unary errors are mapped to status codes and logged.
func NewGRPCServer(logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	gs := grpc.NewServer(grpc.ChainUnaryInterceptor(unaryLogging(logger)))
	hs := health.NewServer()
	healthpb.RegisterHealthServer(gs, hs)
	hs.SetServingStatus(HealthService, healthpb.HealthCheckResponse_NOT_SERVING)
	return gs, hs
}

func unaryLogging(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		if err != nil {
			logger.Warn("grpc.request.failed", "method", info.FullMethod, "error", err, "elapsed_ms", time.Since(start).Milliseconds())
			return resp, common.ToStatus(err)
		}
		logger.Debug("grpc.request", "method", info.FullMethod, "elapsed_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}

// WatchReadiness mirrors the readiness checks into the gRPC health server
// until ctx is done.
func (s *Server) WatchReadiness(ctx context.Context, hs *health.Server, interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	update := func() {
		status := healthpb.HealthCheckResponse_SERVING
		if failed := s.Ready(ctx); len(failed) > 0 {
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
		hs.SetServingStatus("", status)
		hs.SetServingStatus(HealthService, status)
	}
	update()
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			hs.Shutdown()
			return
		case <-t.C:
			update()
		}
	}
}
