package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	cfgpkg "github.com/rzbill/tally/internal/config"
	"github.com/rzbill/tally/internal/eventlog"
	"github.com/rzbill/tally/internal/metrics"
	"github.com/rzbill/tally/internal/namespace"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
	logpkg "github.com/rzbill/tally/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
	// Metrics is optional; when nil a fresh registry is created.
	Metrics *metrics.Registry
}

// Runtime wires storage, config, and the slot's event log.
type Runtime struct {
	db      *pebblestore.DB
	log     *eventlog.Log
	config  cfgpkg.Config
	metrics *metrics.Registry
	logger  logpkg.Logger
}

// Open initializes storage, records the namespace and opens the event log
// for the configured slot.
func Open(opts Options) (*Runtime, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	reg := opts.Metrics
	if reg == nil {
		reg = metrics.New()
	}

	db, err := pebblestore.Open(pebblestore.Options{
		DataDir:       opts.DataDir,
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Metrics:       reg,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	cfg := opts.Config
	meta, err := namespace.EnsureNamespace(db, cfg.Namespace, cfg.MaxValue)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure namespace: %w", err)
	}
	if meta.MaxValue != cfg.MaxValue {
		logger.Warn("max value differs from namespace creation",
			logpkg.Str("namespace", cfg.Namespace),
			logpkg.Uint32("created_with", meta.MaxValue),
			logpkg.Uint32("configured", cfg.MaxValue))
	}

	l, err := eventlog.OpenLog(db, cfg.Namespace, cfg.Slot, 0)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Runtime{db: db, log: l, config: cfg, metrics: reg, logger: logger}, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// DB exposes the underlying DB for services built on the runtime.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Log returns the slot's event log.
func (r *Runtime) Log() *eventlog.Log { return r.log }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Metrics returns the Prometheus registry storage reports into.
func (r *Runtime) Metrics() *metrics.Registry { return r.metrics }

// Logger returns the root logger.
func (r *Runtime) Logger() logpkg.Logger { return r.logger }
