// Package httpserver provides the REST gateway for Tally: JSON endpoints for
// submitting and reading the running total, SSE watch, health and
// Prometheus metrics.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	s := httpserver.New(rt, totalsvc.New(rt), logger, httpserver.Options{Verifier: verifier})
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":8080")
package httpserver
