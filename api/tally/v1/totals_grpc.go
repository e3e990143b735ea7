package tallyv1

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const TotalsService_ServiceName = "tally.v1.TotalsService"

const (
	TotalsService_Submit_FullMethodName   = "/tally.v1.TotalsService/Submit"
	TotalsService_GetTotal_FullMethodName = "/tally.v1.TotalsService/GetTotal"
	TotalsService_Watch_FullMethodName    = "/tally.v1.TotalsService/Watch"
)

// TotalsServiceClient is the client API for TotalsService.
type TotalsServiceClient interface {
	Submit(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (TotalsService_WatchClient, error)
}

type totalsServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTotalsServiceClient(cc grpc.ClientConnInterface) TotalsServiceClient {
	return &totalsServiceClient{cc}
}

func (c *totalsServiceClient) Submit(ctx context.Context, in *wrapperspb.UInt32Value, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TotalsService_Submit_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totalsServiceClient) GetTotal(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, TotalsService_GetTotal_FullMethodName, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *totalsServiceClient) Watch(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (TotalsService_WatchClient, error) {
	stream, err := c.cc.NewStream(ctx, &TotalsService_ServiceDesc.Streams[0], TotalsService_Watch_FullMethodName, opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

type TotalsService_WatchClient = grpc.ServerStreamingClient[structpb.Struct]

// TotalsServiceServer is the server API for TotalsService.
type TotalsServiceServer interface {
	Submit(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error)
	GetTotal(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	Watch(*structpb.Struct, TotalsService_WatchServer) error
}

type TotalsService_WatchServer = grpc.ServerStreamingServer[structpb.Struct]

// UnimplementedTotalsServiceServer returns Unimplemented for every method.
type UnimplementedTotalsServiceServer struct{}

func (UnimplementedTotalsServiceServer) Submit(context.Context, *wrapperspb.UInt32Value) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}

func (UnimplementedTotalsServiceServer) GetTotal(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetTotal not implemented")
}

func (UnimplementedTotalsServiceServer) Watch(*structpb.Struct, TotalsService_WatchServer) error {
	return status.Error(codes.Unimplemented, "method Watch not implemented")
}

func RegisterTotalsServiceServer(s grpc.ServiceRegistrar, srv TotalsServiceServer) {
	s.RegisterService(&TotalsService_ServiceDesc, srv)
}

func _TotalsService_Submit_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(wrapperspb.UInt32Value)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TotalsServiceServer).Submit(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TotalsService_Submit_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TotalsServiceServer).Submit(ctx, req.(*wrapperspb.UInt32Value))
	}
	return interceptor(ctx, in, info, handler)
}

func _TotalsService_GetTotal_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(emptypb.Empty)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(TotalsServiceServer).GetTotal(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: TotalsService_GetTotal_FullMethodName}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(TotalsServiceServer).GetTotal(ctx, req.(*emptypb.Empty))
	}
	return interceptor(ctx, in, info, handler)
}

func _TotalsService_Watch_Handler(srv interface{}, stream grpc.ServerStream) error {
	m := new(structpb.Struct)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TotalsServiceServer).Watch(m, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// TotalsService_ServiceDesc is the grpc.ServiceDesc for TotalsService.
var TotalsService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TotalsService_ServiceName,
	HandlerType: (*TotalsServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Submit", Handler: _TotalsService_Submit_Handler},
		{MethodName: "GetTotal", Handler: _TotalsService_GetTotal_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "Watch", Handler: _TotalsService_Watch_Handler, ServerStreams: true},
	},
	Metadata: "tally/v1/totals",
}
