// Package server exposes the optional HTTP observability endpoint of a
// benchmark process. When enabled via -metrics-addr it serves Prometheus
// metrics, a liveness probe, and the records of completed runs while the
// computation proceeds.
package server

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/hpcbench/picalc/internal/config"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/logging"
	"github.com/hpcbench/picalc/pkg/models"
)

// Server is the HTTP observability server. It owns a concurrent store of
// run records keyed by algorithm name; the application records results as
// runs complete and the /result handler serves them without locking out
// writers.
type Server struct {
	cfg            config.AppConfig
	httpServer     *http.Server
	logger         logging.Logger
	results        *xsync.MapOf[string, *models.Result]
	rateLimiter    *RateLimiter
	securityConfig SecurityConfig
	metrics        *Metrics
	timeouts       Timeouts
}

// NewServer creates a Server listening on cfg.MetricsAddr. Options override
// the default logger, timeouts, rate limiter, and security settings.
func NewServer(cfg config.AppConfig, opts ...Option) *Server {
	s := &Server{
		cfg:            cfg,
		logger:         logging.NewLogger(os.Stderr, "server"),
		results:        xsync.NewMapOf[string, *models.Result](),
		securityConfig: DefaultSecurityConfig(),
		metrics:        NewMetrics(),
		timeouts:       DefaultServerTimeouts(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.rateLimiter == nil {
		s.rateLimiter = NewRateLimiter(DefaultRateLimiterConfig())
	}

	mux := http.NewServeMux()

	// Middleware chain: Security -> RateLimit -> Logging -> Metrics -> Handler
	mux.HandleFunc("/healthz", s.wrapWithMiddleware(s.handleHealthz))
	mux.HandleFunc("/result", s.wrapWithMiddleware(s.handleResult))
	mux.HandleFunc("/metrics", s.wrapWithMiddleware(s.handleMetrics))

	s.httpServer = &http.Server{
		Addr:         cfg.MetricsAddr,
		Handler:      mux,
		ReadTimeout:  s.timeouts.ReadTimeout,
		WriteTimeout: s.timeouts.WriteTimeout,
		IdleTimeout:  s.timeouts.IdleTimeout,
	}

	return s
}

// wrapWithMiddleware applies the full middleware chain to a handler.
func (s *Server) wrapWithMiddleware(handler http.HandlerFunc) http.HandlerFunc {
	wrapped := s.metricsMiddleware(handler)
	wrapped = s.loggingMiddleware(wrapped)
	wrapped = RateLimitMiddleware(s.rateLimiter, wrapped)
	wrapped = SecurityMiddleware(s.securityConfig, wrapped)
	return wrapped
}

// Record stores the outcome of a completed run, replacing any earlier record
// for the same algorithm. Safe to call while the handlers are serving.
func (s *Server) Record(res *models.Result) {
	if res == nil || res.Algorithm == "" {
		return
	}
	s.results.Store(res.Algorithm, res)
}

// snapshot returns the stored records ordered by algorithm name.
func (s *Server) snapshot() []*models.Result {
	records := make([]*models.Result, 0, s.results.Size())
	s.results.Range(func(_ string, res *models.Result) bool {
		records = append(records, res)
		return true
	})
	sort.Slice(records, func(i, j int) bool {
		return records[i].Algorithm < records[j].Algorithm
	})
	return records
}

// Run starts the server and blocks until ctx is canceled or the listener
// fails. Cancellation triggers a graceful shutdown bounded by the configured
// ShutdownTimeout, so an in-flight scrape finishes before Run returns.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("observability server listening", logging.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return apperrors.NewServerError("observability server failed", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.timeouts.ShutdownTimeout)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return apperrors.NewServerError("observability server shutdown failed", err)
	}

	s.logger.Info("observability server stopped")
	return nil
}
