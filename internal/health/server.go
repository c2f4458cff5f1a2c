// Package health reports device reachability through the standard gRPC
// health checking protocol.
package health

import (
	"Go2SessionSpectra/internal/config"
	"Go2SessionSpectra/internal/model"
	"context"
	"fmt"
	"net"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the health service name of a device.
func ServiceName(class model.Class, name string) string {
	return string(class) + "/" + name
}

// Server is a sink that exposes one health service per device, SERVING while
// the device is reachable. The overall "" service turns SERVING once the
// first view has been published.
type Server struct {
	addr   string
	srv    *grpc.Server
	health *health.Server
	logger zerolog.Logger
}

// NewServer creates a health server for cfg. Call Start to begin listening.
func NewServer(cfg config.HealthConfig, logger zerolog.Logger) *Server {
	s := &Server{
		addr:   cfg.ListenAddr,
		srv:    grpc.NewServer(),
		health: health.NewServer(),
		logger: logger,
	}
	healthpb.RegisterHealthServer(s.srv, s.health)
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	return s
}

// Start binds the listen address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	go s.serve(ln)
	return nil
}

func (s *Server) serve(ln net.Listener) {
	s.logger.Info().Str("addr", ln.Addr().String()).Msg("gRPC health server starting")
	if err := s.srv.Serve(ln); err != nil {
		s.logger.Error().Err(err).Msg("gRPC health server stopped")
	}
}

func (*Server) Name() string { return "health" }

// Publish updates the serving status of every device in view.
func (s *Server) Publish(_ context.Context, view model.View) error {
	for _, d := range view.Devices {
		status := healthpb.HealthCheckResponse_NOT_SERVING
		if d.Reachable {
			status = healthpb.HealthCheckResponse_SERVING
		}
		s.health.SetServingStatus(ServiceName(d.Class, d.Name), status)
	}
	s.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	return nil
}

// Close marks every service NOT_SERVING and stops the server.
func (s *Server) Close() error {
	s.health.Shutdown()
	s.srv.GracefulStop()
	s.logger.Info().Msg("gRPC health server stopped")
	return nil
}
