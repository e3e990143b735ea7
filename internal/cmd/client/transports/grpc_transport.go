// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"context"
	"errors"
	"io"

	tallyv1 "github.com/rzbill/tally/api/tally/v1"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// GrpcTransport implements TotalsTransport over gRPC.
type GrpcTransport struct {
	dial func(ctx context.Context) (*grpc.ClientConn, error)
}

// NewGrpcTransport constructs a new GrpcTransport using the provided dialer.
func NewGrpcTransport(dial func(ctx context.Context) (*grpc.ClientConn, error)) *GrpcTransport {
	return &GrpcTransport{dial: dial}
}

func (t *GrpcTransport) withClient(ctx context.Context, fn func(cli tallyv1.TotalsServiceClient) error) error {
	conn, err := t.dial(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Close() }()
	return fn(tallyv1.NewTotalsServiceClient(conn))
}

// Submit adds value to the total.
func (t *GrpcTransport) Submit(ctx context.Context, value uint32) (Event, error) {
	var ev Event
	err := t.withClient(ctx, func(cli tallyv1.TotalsServiceClient) error {
		res, err := cli.Submit(ctx, wrapperspb.UInt32(value))
		if err != nil {
			return err
		}
		w, err := tallyv1.EventFromStruct(res)
		if err != nil {
			return err
		}
		ev = fromWire(w)
		return nil
	})
	return ev, err
}

// Total reads the running total.
func (t *GrpcTransport) Total(ctx context.Context) (Total, error) {
	var out Total
	err := t.withClient(ctx, func(cli tallyv1.TotalsServiceClient) error {
		res, err := cli.GetTotal(ctx, &emptypb.Empty{})
		if err != nil {
			return err
		}
		w, err := tallyv1.TotalFromStruct(res)
		if err != nil {
			return err
		}
		out = Total{Initialized: w.Initialized, Total: w.Total, MaxValue: w.MaxValue}
		return nil
	})
	return out, err
}

// Watch streams events and invokes onEvent for each one until ctx is done,
// the limit is reached or the server ends the stream.
func (t *GrpcTransport) Watch(ctx context.Context, req WatchRequest, onEvent func(Event) error) error {
	return t.withClient(ctx, func(cli tallyv1.TotalsServiceClient) error {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()
		stream, err := cli.Watch(ctx, tallyv1.WatchRequest(req.From, req.Filter))
		if err != nil {
			return err
		}
		seen := 0
		for {
			m, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) || status.Code(err) == codes.Canceled || errors.Is(err, context.Canceled) {
					return nil
				}
				return err
			}
			w, err := tallyv1.EventFromStruct(m)
			if err != nil {
				return err
			}
			if err := onEvent(fromWire(w)); err != nil {
				return err
			}
			seen++
			if req.Limit > 0 && seen >= req.Limit {
				return nil
			}
		}
	})
}

func fromWire(w tallyv1.Event) Event {
	return Event{Seq: w.Seq, Total: w.Total, Submitter: w.Submitter, Value: w.Value, AtMs: w.AtMs}
}
