// Package log provides Tally's structured logging facade.
//
// # Overview
//
// The package exposes a small Logger interface with leveled methods and a
// Field type for structured context. Records are routed through log/slog via
// a bridge handler so that formatting and outputs stay under our control
// while the slog ecosystem remains usable.
//
// Quick start
//
//	l := log.NewLogger(
//	    log.WithLevel(log.InfoLevel),
//	    log.WithFormatter(&log.TextFormatter{}),
//	    log.WithOutput(log.NewConsoleOutput()),
//	)
//	l = l.With(log.Component("totals"))
//	l.Info("submission applied", log.Uint32("total", 30), log.Str("submitter", "alice"))
//
// # Configuration
//
// ApplyConfig builds a logger from a declarative Config (level and text/json
// format). RedirectStdLog routes the standard library logger, which Pebble
// writes to, into a Logger.
package log
