package client

import (
	"context"
	"encoding/json"
	"io"
	"os"

	"github.com/rzbill/tally/internal/cmd/client/transports"
	cfgpkg "github.com/rzbill/tally/internal/config"
	grpcserver "github.com/rzbill/tally/internal/server/grpc"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcAddrFromEnv returns the gRPC server address from TALLY_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv(cfgpkg.EnvPrefix + "GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// tokenOrEnv returns flag when set, otherwise TALLY_TOKEN.
func tokenOrEnv(flag string) string {
	if flag != "" {
		return flag
	}
	return os.Getenv(cfgpkg.EnvPrefix + "TOKEN")
}

// dialer returns a gRPC dialer with insecure transport for local/dev that
// attaches token, when set, as a bearer credential.
func dialer(token string) func(ctx context.Context) (*grpc.ClientConn, error) {
	return func(ctx context.Context) (*grpc.ClientConn, error) {
		opts := []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithStatsHandler(otelgrpc.NewClientHandler()),
		}
		if token != "" {
			opts = append(opts, grpc.WithPerRPCCredentials(grpcserver.BearerCredentials{Token: token, Insecure: true}))
		}
		return grpc.NewClient(grpcAddrFromEnv(), opts...)
	}
}

// newTransport is swapped in tests.
var newTransport = func(token string) transports.TotalsTransport {
	return transports.NewGrpcTransport(dialer(token))
}

// printJSON writes v as a single JSON line.
func printJSON(w io.Writer, v any) error {
	return json.NewEncoder(w).Encode(v)
}
