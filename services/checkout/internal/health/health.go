// Package health reports checkout readiness over the standard gRPC health
// protocol.
package health

import (
	"context"
	"sync"
	"time"

	"github.com/appetiteclub/apt"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const DefaultInterval = 15 * time.Second

// Checker returns nil while a dependency is usable.
type Checker func(ctx context.Context) error

// Server publishes SERVING or NOT_SERVING for the named service depending
// on the checkers. It also answers for the empty service name.
type Server struct {
	service  string
	checks   map[string]Checker
	interval time.Duration
	hs       *health.Server
	logger   apt.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewServer(service string, checks map[string]Checker, interval time.Duration, logger apt.Logger) *Server {
	if logger == nil {
		logger = apt.NewNoopLogger()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Server{
		service:  service,
		checks:   checks,
		interval: interval,
		hs:       health.NewServer(),
		logger:   logger,
	}
}

// RegisterGRPCService registers the health service with the gRPC server.
func (s *Server) RegisterGRPCService(server *grpc.Server) {
	healthpb.RegisterHealthServer(server, s.hs)
	s.logger.Info("gRPC health service registered", "service", s.service)
}

// Start runs the checkers once and then on every interval until Stop.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel
	s.done = make(chan struct{})

	s.Check(runCtx)

	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
				s.Check(runCtx)
			}
		}
	}()
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	s.hs.Shutdown()

	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

// Check runs every checker and updates the published status.
func (s *Server) Check(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	status := healthpb.HealthCheckResponse_SERVING
	for name, check := range s.checks {
		checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := check(checkCtx)
		cancel()
		if err != nil {
			s.logger.Error("health check failed", "check", name, "error", err)
			status = healthpb.HealthCheckResponse_NOT_SERVING
		}
	}

	s.hs.SetServingStatus("", status)
	s.hs.SetServingStatus(s.service, status)
	return status
}
