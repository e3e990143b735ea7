// Package config provides loading and environment overlay for Tally's
// runtime configuration. It exposes a Default() baseline, JSON/YAML file
// loading and a TALLY_* environment overlay.
//
// Example:
//
//	cfg, err := config.Load("/etc/tally.yaml")
//	if err != nil { /* handle */ }
//	if err := config.FromEnv(&cfg); err != nil { /* handle */ }
//	if err := cfg.Validate(); err != nil { /* handle */ }
//	rt, _ := runtime.Open(runtime.Options{DataDir: config.DefaultDataDir(), Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
package config
