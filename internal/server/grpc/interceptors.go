package grpcserver

import (
	"context"
	"time"

	tallyv1 "github.com/rzbill/tally/api/tally/v1"
	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/ratelimit"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// guardedMethods require a bearer identity and count against the limiter.
var guardedMethods = map[string]bool{
	tallyv1.TotalsService_Submit_FullMethodName: true,
}

func authorize(ctx context.Context, v auth.Verifier, l *ratelimit.Limiter) (context.Context, error) {
	var header string
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get("authorization"); len(vals) > 0 {
			header = vals[0]
		}
	}
	id, err := v.Verify(ctx, auth.BearerToken(header))
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, "unauthenticated")
	}
	if !l.Allow(id.String(), time.Now()) {
		return ctx, status.Error(codes.ResourceExhausted, "rate limited")
	}
	return auth.WithIdentity(ctx, id), nil
}

func unaryAuth(v auth.Verifier, l *ratelimit.Limiter) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if !guardedMethods[info.FullMethod] {
			return handler(ctx, req)
		}
		ctx, err := authorize(ctx, v, l)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// authStream overrides Context so handlers see the authenticated identity.
type authStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *authStream) Context() context.Context { return s.ctx }

func streamAuth(v auth.Verifier, l *ratelimit.Limiter) grpc.StreamServerInterceptor {
	return func(srv any, ss grpc.ServerStream, info *grpc.StreamServerInfo, handler grpc.StreamHandler) error {
		if !guardedMethods[info.FullMethod] {
			return handler(srv, ss)
		}
		ctx, err := authorize(ss.Context(), v, l)
		if err != nil {
			return err
		}
		return handler(srv, &authStream{ServerStream: ss, ctx: ctx})
	}
}

// BearerCredentials attaches "authorization: Bearer <token>" to every call.
type BearerCredentials struct {
	Token string
	// Insecure allows sending the token over plaintext connections.
	Insecure bool
}

func (b BearerCredentials) GetRequestMetadata(context.Context, ...string) (map[string]string, error) {
	if b.Token == "" {
		return nil, nil
	}
	return map[string]string{"authorization": "Bearer " + b.Token}, nil
}

func (b BearerCredentials) RequireTransportSecurity() bool { return !b.Insecure }
