package grpcserver

import (
	"context"
	"net"

	tallyv1 "github.com/rzbill/tally/api/tally/v1"
	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/ratelimit"
	"github.com/rzbill/tally/internal/runtime"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	logpkg "github.com/rzbill/tally/pkg/log"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Options carries the collaborators guarding submissions.
type Options struct {
	Verifier auth.Verifier
	Limiter  *ratelimit.Limiter
}

// Server owns the gRPC server instance and runtime.
type Server struct {
	rt     *runtime.Runtime
	grpc   *grpc.Server
	health *healthSvc
	lis    net.Listener
	stop   context.CancelFunc
}

// New constructs a gRPC server and registers services. Extra server options
// are appended after the built-in interceptors and stats handler.
func New(rt *runtime.Runtime, svc *totalsvc.Service, logger logpkg.Logger, opts Options, extra ...grpc.ServerOption) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	logger = logger.With(logpkg.Component("grpc"))
	base := []grpc.ServerOption{
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(unaryAuth(opts.Verifier, opts.Limiter)),
		grpc.ChainStreamInterceptor(streamAuth(opts.Verifier, opts.Limiter)),
	}
	stopping, stop := context.WithCancel(context.Background())
	s := &Server{rt: rt, grpc: grpc.NewServer(append(base, extra...)...), health: newHealthSvc(rt), stop: stop}
	healthpb.RegisterHealthServer(s.grpc, s.health)
	tallyv1.RegisterTotalsServiceServer(s.grpc, &totalsSvc{svc: svc, logger: logger, stopping: stopping})
	return s
}

// Serve serves on an existing listener until it fails or the server stops.
func (s *Server) Serve(l net.Listener) error {
	return s.grpc.Serve(l)
}

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(l) }()
	select {
	case <-ctx.Done():
		s.Close()
		return nil
	case err := <-errCh:
		return err
	}
}

// Close stops the server and closes the listener.
func (s *Server) Close() {
	s.health.Shutdown()
	s.stop()
	if s.grpc != nil {
		s.grpc.GracefulStop()
	}
	if s.lis != nil {
		_ = s.lis.Close()
	}
}
