// Package health exposes the standard grpc.health.v1 service for cryptexd.
package health

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the service reported alongside the overall ("") status.
const ServiceName = "cryptex.v1.Cipher"

// Service tracks the serving status of the cipher API.
type Service struct {
	server *health.Server
}

// New returns a Service that reports NOT_SERVING until SetServing is called.
func New() *Service {
	s := &Service{server: health.NewServer()}
	s.SetNotServing()
	return s
}

// Register attaches the health service to srv.
func (s *Service) Register(srv *grpc.Server) {
	grpc_health_v1.RegisterHealthServer(srv, s.server)
}

func (s *Service) SetServing() {
	s.set(grpc_health_v1.HealthCheckResponse_SERVING)
}

func (s *Service) SetNotServing() {
	s.set(grpc_health_v1.HealthCheckResponse_NOT_SERVING)
}

func (s *Service) set(status grpc_health_v1.HealthCheckResponse_ServingStatus) {
	s.server.SetServingStatus("", status)
	s.server.SetServingStatus(ServiceName, status)
}

// Shutdown marks every service NOT_SERVING and ignores later updates.
func (s *Service) Shutdown() {
	s.server.Shutdown()
}
