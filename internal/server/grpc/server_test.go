package grpcserver

import (
	"context"
	"net"
	"testing"
	"time"

	tallyv1 "github.com/rzbill/tally/api/tally/v1"
	"github.com/rzbill/tally/internal/auth"
	cfgpkg "github.com/rzbill/tally/internal/config"
	"github.com/rzbill/tally/internal/ratelimit"
	"github.com/rzbill/tally/internal/runtime"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

const (
	bufSize    = 1 << 20
	testSecret = "0123456789abcdef0123456789abcdef"
)

type fixture struct {
	rt       *runtime.Runtime
	srv      *Server
	conn     *grpc.ClientConn
	verifier *auth.JWTVerifier
}

func newFixture(t *testing.T, limiter *ratelimit.Limiter) *fixture {
	t.Helper()
	cfg := cfgpkg.Default()
	cfg.Auth.Secret = testSecret
	cfg.Watch.PollMs = 20
	rt, err := runtime.Open(runtime.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
	if err != nil {
		t.Fatalf("rt open: %v", err)
	}
	v := auth.NewJWTVerifier(testSecret, cfg.Auth.Issuer)
	srv := New(rt, totalsvc.New(rt), nil, Options{Verifier: v, Limiter: limiter})

	lis := bufconn.Listen(bufSize)
	go func() { _ = srv.Serve(lis) }()
	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return lis.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() {
		_ = conn.Close()
		srv.Close()
		_ = rt.Close()
	})
	return &fixture{rt: rt, srv: srv, conn: conn, verifier: v}
}

// client returns a TotalsService client that authenticates as subject, or
// anonymously when subject is empty.
func (f *fixture) client(t *testing.T, subject string) (tallyv1.TotalsServiceClient, []grpc.CallOption) {
	t.Helper()
	var opts []grpc.CallOption
	if subject != "" {
		tok, err := f.verifier.Issue(subject, time.Minute)
		if err != nil {
			t.Fatalf("issue: %v", err)
		}
		opts = append(opts, grpc.PerRPCCredentials(BearerCredentials{Token: tok, Insecure: true}))
	}
	return tallyv1.NewTotalsServiceClient(f.conn), opts
}

func TestHealthOverGRPC(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := healthpb.NewHealthClient(f.conn).Check(ctx, &healthpb.HealthCheckRequest{Service: totalsServiceName})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if res.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		t.Fatalf("status = %v", res.GetStatus())
	}
}

func TestSubmitAndGetTotal(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, opts := f.client(t, "1")

	res, err := c.GetTotal(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("get total: %v", err)
	}
	if tot, _ := tallyv1.TotalFromStruct(res); tot.Initialized || tot.MaxValue != 50 {
		t.Fatalf("fresh total = %+v", tot)
	}

	for _, v := range []uint32{10, 20} {
		if _, err := c.Submit(ctx, wrapperspb.UInt32(v), opts...); err != nil {
			t.Fatalf("submit %d: %v", v, err)
		}
	}
	res, err = c.GetTotal(ctx, &emptypb.Empty{})
	if err != nil {
		t.Fatalf("get total: %v", err)
	}
	tot, err := tallyv1.TotalFromStruct(res)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !tot.Initialized || tot.Total != 30 {
		t.Fatalf("total = %+v", tot)
	}
}

func TestSubmitErrorCodes(t *testing.T) {
	f := newFixture(t, ratelimit.New(0.001, 2, time.Minute))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	anon, _ := f.client(t, "")
	if _, err := anon.Submit(ctx, wrapperspb.UInt32(1)); status.Code(err) != codes.Unauthenticated {
		t.Fatalf("anonymous: %v", err)
	}

	c, opts := f.client(t, "1")
	if _, err := c.Submit(ctx, wrapperspb.UInt32(51), opts...); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("too large: %v", err)
	}
	if _, err := c.Submit(ctx, wrapperspb.UInt32(1), opts...); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if _, err := c.Submit(ctx, wrapperspb.UInt32(1), opts...); status.Code(err) != codes.ResourceExhausted {
		t.Fatalf("rate limited: %v", err)
	}
}

func TestSubmitOverflowCode(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	cfg := f.rt.Config()
	if err := f.rt.DB().Set(totalsvc.KeyTotal(cfg.Namespace, cfg.Slot), []byte{0xFF, 0xFF, 0xFF, 0xFA}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	c, opts := f.client(t, "1")
	if _, err := c.Submit(ctx, wrapperspb.UInt32(10), opts...); status.Code(err) != codes.OutOfRange {
		t.Fatalf("overflow: %v", err)
	}
}

func TestWatchOverGRPC(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, opts := f.client(t, "alice")
	if _, err := c.Submit(ctx, wrapperspb.UInt32(2), opts...); err != nil {
		t.Fatalf("submit: %v", err)
	}

	stream, err := c.Watch(ctx, tallyv1.WatchRequest("earliest", "submitter == 'alice'"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := c.Submit(ctx, wrapperspb.UInt32(3), opts...); err != nil {
		t.Fatalf("submit: %v", err)
	}
	var got []uint32
	for len(got) < 2 {
		msg, err := stream.Recv()
		if err != nil {
			t.Fatalf("recv: %v", err)
		}
		ev, err := tallyv1.EventFromStruct(msg)
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		got = append(got, ev.Total)
	}
	if got[0] != 2 || got[1] != 5 {
		t.Fatalf("watched totals = %v", got)
	}
}

func TestWatchBadFilter(t *testing.T) {
	f := newFixture(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	c, _ := f.client(t, "")
	stream, err := c.Watch(ctx, tallyv1.WatchRequest("", "total >"))
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	if _, err := stream.Recv(); status.Code(err) != codes.InvalidArgument {
		t.Fatalf("want InvalidArgument, got %v", err)
	}
}
