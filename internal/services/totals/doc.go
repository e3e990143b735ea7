// Package totalsvc hosts the accumulator on top of the runtime. It
// serializes submissions, commits the new total and its event in a single
// Pebble batch, and serves history and live watches over the slot's event
// log for the gRPC/HTTP transports.
//
// Example:
//
//	svc := totalsvc.New(rt)
//	ev, err := svc.Submit(ctx, "alice", 10)
//	total, ok, _ := svc.Total(ctx)
//	_ = svc.Watch(ctx, totalsvc.WatchOptions{From: "earliest", Filter: "total > 20"}, mySink)
package totalsvc
