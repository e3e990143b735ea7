package httpserver

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/rzbill/tally/internal/auth"
	"github.com/rzbill/tally/internal/ratelimit"
	"github.com/rzbill/tally/internal/runtime"
	"github.com/rzbill/tally/internal/server/http/controllers"
	totalsvc "github.com/rzbill/tally/internal/services/totals"
	logpkg "github.com/rzbill/tally/pkg/log"
)

// Options carries the collaborators guarding submissions.
type Options struct {
	// Verifier authenticates submitters. Required.
	Verifier auth.Verifier
	// Limiter throttles submissions per identity. Nil disables throttling.
	Limiter *ratelimit.Limiter
}

type Server struct {
	rt     *runtime.Runtime
	srv    *http.Server
	lis    net.Listener
	logger logpkg.Logger
}

// New wires the controllers onto a ServeMux wrapped with CORS and access
// logging.
func New(rt *runtime.Runtime, svc *totalsvc.Service, logger logpkg.Logger, opts Options) *Server {
	if logger == nil {
		logger = rt.Logger()
	}
	logger = logger.With(logpkg.Component("http"))
	mux := http.NewServeMux()
	controllers.NewControllerRegistry(rt, svc, opts.Verifier, opts.Limiter, logger).RegisterAllRoutes(mux)
	s := &Server{rt: rt, logger: logger}
	s.srv = &http.Server{
		Handler:           cors(accessLog(logger, mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.srv.Handler }

// ListenAndServe binds to addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	l, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.lis = l
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.Serve(l) }()
	select {
	case <-ctx.Done():
		cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.srv.Shutdown(cctx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Addr returns the bound address once listening.
func (s *Server) Addr() net.Addr {
	if s.lis == nil {
		return nil
	}
	return s.lis.Addr()
}

func (s *Server) Close() {
	if s.lis != nil {
		_ = s.lis.Close()
	}
}

func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the response status for access logs. It forwards
// Flush so SSE keeps working through the wrapper.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func accessLog(logger logpkg.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http.request",
			logpkg.Str("method", r.Method),
			logpkg.Str("path", r.URL.Path),
			logpkg.Int("status", rec.status),
			logpkg.Duration("dur", time.Since(start)))
	})
}
