// Package grpcserver hosts the gRPC server for Tally, registering the
// standard health service and tally.v1.TotalsService on top of the totals
// service layer.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	s := grpcserver.New(rt, totalsvc.New(rt), logger, grpcserver.Options{Verifier: verifier})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
