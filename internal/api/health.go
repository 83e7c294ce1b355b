package api

import (
	"net"
)

import (
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// HealthService is the name reported through grpc.health.v1.
const HealthService = "pixiu.rcu"

// HealthServer exposes the standard gRPC health protocol for the harness.
type HealthServer struct {
	addr   string
	grpc   *grpc.Server
	health *health.Server
}

func NewHealthServer(addr string) *HealthServer {
	h := &HealthServer{
		addr:   addr,
		grpc:   grpc.NewServer(),
		health: health.NewServer(),
	}
	healthpb.RegisterHealthServer(h.grpc, h.health)
	h.SetServing(false)
	return h
}

// SetServing flips both the overall and the named service status.
func (h *HealthServer) SetServing(serving bool) {
	status := healthpb.HealthCheckResponse_NOT_SERVING
	if serving {
		status = healthpb.HealthCheckResponse_SERVING
	}
	h.health.SetServingStatus("", status)
	h.health.SetServingStatus(HealthService, status)
}

func (h *HealthServer) ListenAndServe() error {
	lis, err := net.Listen("tcp", h.addr)
	if err != nil {
		return err
	}
	return h.Serve(lis)
}

func (h *HealthServer) Serve(lis net.Listener) error {
	return h.grpc.Serve(lis)
}

// Shutdown marks everything NOT_SERVING and drains in-flight RPCs.
func (h *HealthServer) Shutdown() {
	h.health.Shutdown()
	h.grpc.GracefulStop()
}
