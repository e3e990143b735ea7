// Package runtime wires storage, config, metrics and logging into a
// single-node Tally instance. It owns the Pebble handle and the slot's event
// log; higher layers build services on top of it.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	svc := totals.New(rt.DB(), rt.Log(), totals.Options{MaxValue: cfg.MaxValue})
package runtime
