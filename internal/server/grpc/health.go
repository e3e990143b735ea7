package grpcserver

import (
	"context"

	"github.com/rzbill/tally/internal/runtime"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// healthSvc answers Check from the runtime's storage probe and leaves Watch
// and List to the stock health server.
type healthSvc struct {
	*health.Server
	rt *runtime.Runtime
}

func newHealthSvc(rt *runtime.Runtime) *healthSvc {
	h := &healthSvc{Server: health.NewServer(), rt: rt}
	h.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	h.SetServingStatus(totalsServiceName, healthpb.HealthCheckResponse_SERVING)
	return h
}

func (h *healthSvc) Check(ctx context.Context, req *healthpb.HealthCheckRequest) (*healthpb.HealthCheckResponse, error) {
	if err := h.rt.CheckHealth(ctx); err != nil {
		return &healthpb.HealthCheckResponse{Status: healthpb.HealthCheckResponse_NOT_SERVING}, nil
	}
	return h.Server.Check(ctx, req)
}
