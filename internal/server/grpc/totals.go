package grpcserver

import (
	"context"
	"errors"

	tallyv1 "github.com/rzbill/tally/api/tally/v1"
	"github.com/rzbill/tally/internal/accumulator"
	"github.com/rzbill/tally/internal/auth"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	logpkg "github.com/rzbill/tally/pkg/log"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const totalsServiceName = tallyv1.TotalsService_ServiceName

type totalsSvc struct {
	tallyv1.UnimplementedTotalsServiceServer
	svc    *totalsvc.Service
	logger logpkg.Logger
	// stopping is cancelled when the server shuts down so open watches end
	// and GracefulStop can return.
	stopping context.Context
}

func (s *totalsSvc) Submit(ctx context.Context, req *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	id, ok := auth.IdentityFrom(ctx)
	if !ok {
		return nil, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	ev, err := s.svc.Submit(ctx, id, req.GetValue())
	if err != nil {
		return nil, s.toStatus(err)
	}
	return tallyv1.EventStruct(toWire(ev)), nil
}

func (s *totalsSvc) GetTotal(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	total, ok, err := s.svc.Total(ctx)
	if err != nil {
		return nil, s.toStatus(err)
	}
	return tallyv1.TotalStruct(tallyv1.Total{Initialized: ok, Total: total, MaxValue: s.svc.MaxValue()}), nil
}

func (s *totalsSvc) Watch(req *structpb.Struct, stream tallyv1.TotalsService_WatchServer) error {
	from, filter := tallyv1.WatchOptionsFromStruct(req)
	ctx, cancel := context.WithCancel(stream.Context())
	defer cancel()
	stop := context.AfterFunc(s.stopping, cancel)
	defer stop()
	err := s.svc.Watch(ctx, totalsvc.WatchOptions{From: from, Filter: filter}, totalsvc.WatchSinkFunc(func(ev totalsvc.Event) error {
		return stream.Send(tallyv1.EventStruct(toWire(ev)))
	}))
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	if err != nil {
		return s.toStatus(err)
	}
	return nil
}

func toWire(ev totalsvc.Event) tallyv1.Event {
	return tallyv1.Event{Seq: ev.Seq, Total: ev.Total, Submitter: ev.Submitter, Value: ev.Value, AtMs: ev.AtMs}
}

// toStatus maps service errors onto gRPC codes, logging unexpected ones.
func (s *totalsSvc) toStatus(err error) error {
	switch {
	case errors.Is(err, accumulator.ErrValueTooLarge), errors.Is(err, totalsvc.ErrInvalidArgument):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, accumulator.ErrOverflow):
		return status.Error(codes.OutOfRange, err.Error())
	case errors.Is(err, auth.ErrUnauthenticated):
		return status.Error(codes.Unauthenticated, "unauthenticated")
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	default:
		s.logger.Error("totals rpc failed", logpkg.Err(err))
		return status.Error(codes.Internal, "internal error")
	}
}
