package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/felixgeelhaar/nativebridge/pkg/observability"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// BillingHealthService is the gRPC health service name that tracks billing readiness.
const BillingHealthService = "nativebridge.billing"

// ReadinessServer publishes billing readiness through the standard gRPC
// health service and optionally serves metrics over HTTP.
type ReadinessServer struct {
	logger     *slog.Logger
	grpcServer *grpc.Server
	health     *health.Server
	httpServer *http.Server

	mu      sync.Mutex
	grpcLis net.Listener
	wg      sync.WaitGroup
}

// NewReadinessServer creates a readiness server. The overall service is
// SERVING; the billing service starts NOT_SERVING.
func NewReadinessServer(logger *slog.Logger) *ReadinessServer {
	if logger == nil {
		logger = slog.Default()
	}
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus(BillingHealthService, healthpb.HealthCheckResponse_NOT_SERVING)

	return &ReadinessServer{
		logger:     logger.With("component", "readiness"),
		grpcServer: grpcServer,
		health:     healthSrv,
	}
}

// SetBillingReady updates the billing service status.
func (r *ReadinessServer) SetBillingReady(ready bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if ready {
		status = healthpb.HealthCheckResponse_SERVING
	}
	r.health.SetServingStatus(BillingHealthService, status)
}

// ListenGRPC starts serving the health service on addr and returns the bound address.
func (r *ReadinessServer) ListenGRPC(addr string) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	r.mu.Lock()
	r.grpcLis = lis
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("grpc health server started", "addr", lis.Addr().String())
		if err := r.grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			r.logger.Error("grpc health server failed", "error", err)
		}
	}()
	return lis.Addr(), nil
}

// ListenMetrics serves handler at /metrics on addr. When checks is non-nil
// the aggregated health report is served at /health.
func (r *ReadinessServer) ListenMetrics(addr string, handler http.Handler, checks *observability.HealthRegistry) (net.Addr, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)
	if checks != nil {
		mux.HandleFunc("GET /health", healthHandler(checks))
	}

	r.mu.Lock()
	r.httpServer = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	srv := r.httpServer
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.logger.Info("metrics server started", "addr", lis.Addr().String())
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			r.logger.Error("metrics server failed", "error", err)
		}
	}()
	return lis.Addr(), nil
}

func healthHandler(checks *observability.HealthRegistry) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		report := checks.Report(req.Context())
		status := http.StatusOK
		if report.Status == observability.HealthStatusUnhealthy {
			status = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(report)
	}
}

// Stop shuts both servers down.
func (r *ReadinessServer) Stop() {
	r.health.Shutdown()

	r.mu.Lock()
	srv := r.httpServer
	r.mu.Unlock()
	if srv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		_ = srv.Shutdown(ctx)
		cancel()
	}

	r.grpcServer.GracefulStop()
	r.wg.Wait()
}

// StartHealthServers starts the readiness server when GRPC_HEALTH_ADDR or
// METRICS_ADDR is configured. metrics may be nil when no metrics endpoint is wanted.
func (c *Container) StartHealthServers(ctx context.Context, metrics http.Handler) error {
	if c.Config.GRPCHealthAddr == "" && (c.Config.MetricsAddr == "" || metrics == nil) {
		return nil
	}

	readiness := NewReadinessServer(c.Logger)
	if c.Config.GRPCHealthAddr != "" {
		if _, err := readiness.ListenGRPC(c.Config.GRPCHealthAddr); err != nil {
			return err
		}
	}
	if c.Config.MetricsAddr != "" && metrics != nil {
		if _, err := readiness.ListenMetrics(c.Config.MetricsAddr, metrics, c.Health); err != nil {
			readiness.Stop()
			return err
		}
	}

	// Installed on the loop so state changes observe it without a data race.
	err := c.Loop.Do(ctx, func() {
		c.Readiness = readiness
		readiness.SetBillingReady(c.billingReady)
	})
	if err != nil {
		readiness.Stop()
		return err
	}
	return nil
}
