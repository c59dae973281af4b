package grpc

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/example/moonjewelry/pkg/config"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const defaultProbeInterval = 10 * time.Second

// Pinger is a dependency whose reachability decides the serving status.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer is the ops listener: the standard gRPC health service backed by
// periodic dependency probes, plus reflection for grpcurl.
type HealthServer struct {
	config   *config.ServerConfig
	logger   *zap.Logger
	health   *health.Server
	server   *grpc.Server
	deps     map[string]Pinger
	interval time.Duration
	ctx      context.Context
	cancel   context.CancelFunc
}

func NewHealthServer(cfg *config.ServerConfig, logger *zap.Logger, deps map[string]Pinger) *HealthServer {
	hs := health.NewServer()
	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	reflection.Register(srv)

	// nothing is known to be healthy until the first probe
	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	hs.SetServingStatus(cfg.Name, healthpb.HealthCheckResponse_NOT_SERVING)

	ctx, cancel := context.WithCancel(context.Background())
	return &HealthServer{
		ctx:      ctx,
		cancel:   cancel,
		config:   cfg,
		logger:   logger,
		health:   hs,
		server:   srv,
		deps:     deps,
		interval: defaultProbeInterval,
	}
}

func (s *HealthServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve probes dependencies in the background and blocks serving lis.
func (s *HealthServer) Serve(lis net.Listener) error {
	go s.watch(s.ctx)

	s.logger.Info("Health service started", zap.String("address", lis.Addr().String()))
	return s.server.Serve(lis)
}

func (s *HealthServer) watch(ctx context.Context) {
	s.Probe(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Probe(ctx)
		}
	}
}

// Probe pings every dependency once and updates the serving status.
func (s *HealthServer) Probe(ctx context.Context) {
	status := healthpb.HealthCheckResponse_SERVING
	for name, dep := range s.deps {
		pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := dep.Ping(pctx)
		cancel()
		if err != nil {
			s.logger.Warn("Dependency unhealthy", zap.String("dependency", name), zap.Error(err))
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}
	s.health.SetServingStatus("", status)
	s.health.SetServingStatus(s.config.Name, status)
}

func (s *HealthServer) Stop() {
	s.cancel()
	s.health.Shutdown()
	s.server.GracefulStop()
}
