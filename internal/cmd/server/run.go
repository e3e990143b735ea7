package serverrun

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/rzbill/tally/internal/auth"
	cfgpkg "github.com/rzbill/tally/internal/config"
	"github.com/rzbill/tally/internal/ratelimit"
	"github.com/rzbill/tally/internal/runtime"
	grpcserver "github.com/rzbill/tally/internal/server/grpc"
	httpserver "github.com/rzbill/tally/internal/server/http"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	pebblestore "github.com/rzbill/tally/internal/storage/pebble"
	logpkg "github.com/rzbill/tally/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = os.Getenv

type Options struct {
	DataDir       string
	GRPCAddr      string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// LogLevel and LogFormat fall back to TALLY_LOG_LEVEL / TALLY_LOG_FORMAT,
	// then info/text.
	LogLevel  string
	LogFormat string
}

// Verifier builds the identity verifier described by cfg.
func Verifier(cfg cfgpkg.AuthConfig) auth.Verifier {
	if cfg.Disabled {
		return auth.AnonymousVerifier{Identity: "anonymous"}
	}
	return auth.NewJWTVerifier(cfg.Secret, cfg.Issuer)
}

// buildLogger creates the process-wide logger from options and env.
func buildLogger(opts Options) (logpkg.Logger, *logpkg.Config) {
	cfg := &logpkg.Config{
		Level:  opts.LogLevel,
		Format: opts.LogFormat,
	}
	if cfg.Level == "" {
		cfg.Level = getenvDefault(cfgpkg.EnvPrefix+"LOG_LEVEL", "info")
	}
	if cfg.Format == "" {
		cfg.Format = getenvDefault(cfgpkg.EnvPrefix+"LOG_FORMAT", "text")
	}
	logger, err := logpkg.ApplyConfig(cfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(cfg.Level); e == nil {
			lvl = l
		}
		logger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}
	return logger, cfg
}

// Run starts gRPC and HTTP servers and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}

	procLogger, logCfg := buildLogger(opts)
	// Redirect stdlib logs to our logger
	logpkg.RedirectStdLog(procLogger)

	rt, err := runtime.Open(runtime.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        opts.Config,
		Logger:        procLogger,
	})
	if err != nil {
		return err
	}
	defer rt.Close()

	cfg := rt.Config()
	procLogger.Info("Starting Tally server",
		logpkg.Str("grpc", opts.GRPCAddr),
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("namespace", cfg.Namespace),
		logpkg.Str("slot", cfg.Slot),
		logpkg.Uint32("max_value", cfg.MaxValue),
		logpkg.Bool("auth", !cfg.Auth.Disabled),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)
	if cfg.Auth.Disabled {
		procLogger.Warn("authentication disabled; every submission is accepted as the bearer value or \"anonymous\"")
	}

	svc := totalsvc.NewWithLogger(rt, procLogger)
	verifier := Verifier(cfg.Auth)
	limiter := ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst, 0)
	gsrv := grpcserver.New(rt, svc, procLogger, grpcserver.Options{Verifier: verifier, Limiter: limiter})
	hsrv := httpserver.New(rt, svc, procLogger, httpserver.Options{Verifier: verifier, Limiter: limiter})

	errCh := make(chan error, 2)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := gsrv.ListenAndServe(sctx, opts.GRPCAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("grpc server failed", logpkg.Err(err))
			errCh <- err
		}
	}()
	go func() {
		defer wg.Done()
		if err := hsrv.ListenAndServe(sctx, opts.HTTPAddr); err != nil && sctx.Err() == nil {
			procLogger.Error("http server failed", logpkg.Err(err))
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-sctx.Done():
	case runErr = <-errCh:
		stop()
	}
	// Shut transports down before the deferred runtime close.
	gsrv.Close()
	hsrv.Close()
	wg.Wait()
	procLogger.Info("Tally server stopped")
	return runErr
}
