package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"puppethook/internal/config"
	"puppethook/internal/store"
	"puppethook/internal/webhook"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"
)

const (
	// HTTP server timeouts
	HTTPReadTimeout = 10 * time.Second
	HTTPIdleTimeout = 60 * time.Second
	ShutdownTimeout = 30 * time.Second

	// Headroom on top of the dispatch budget for parsing, prefix commands and reporting
	RequestHeadroom = 30 * time.Second

	// Rate limiting - requests per minute
	GlobalRateLimit  = 60 // Global rate limit per minute
	WebhookRateLimit = 12 // Webhook-specific rate limit per minute
)

// History is the read side of the dispatch store used by the status endpoint.
type History interface {
	LatestDispatch(ctx context.Context, target string) (*store.DispatchRecord, error)
	DispatchHistory(ctx context.Context, target string, limit int) ([]store.DispatchRecord, error)
}

// Server represents the HTTP server
type Server struct {
	Config   *config.Config
	Webhook  *webhook.Orchestrator
	History  History
	Logger   *slog.Logger
	TestMode bool
}

// NewServer creates a new server instance. hist may be nil, in which case
// the status endpoint reports that history is unavailable.
func NewServer(cfg *config.Config, orch *webhook.Orchestrator, hist History, logger *slog.Logger, testMode bool) *Server {
	return &Server{
		Config:   cfg,
		Webhook:  orch,
		History:  hist,
		Logger:   logger,
		TestMode: testMode,
	}
}

// RequestTimeout bounds one request, long enough for a synchronous or rpc dispatch.
func (s *Server) RequestTimeout() time.Duration {
	return max(s.Config.ClientTimeoutDuration(), s.Config.DiscoveryTimeoutDuration()) + RequestHeadroom
}

// Router creates and configures the HTTP router
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.RequestTimeout()))

	// Logging middleware
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			defer func() {
				s.Logger.Info("http_request",
					"method", r.Method,
					"path", r.URL.Path,
					"status", ww.Status(),
					"duration_ms", time.Since(start).Milliseconds(),
					"request_id", middleware.GetReqID(r.Context()))
			}()

			next.ServeHTTP(ww, r)
		})
	})

	// Rate limiting middleware (only if not in test mode)
	if !s.TestMode {
		r.Use(NewRateLimitMiddleware(GlobalRateLimit, s.Logger))
	}

	// Routes
	r.Get("/health", s.HandleHealth)
	r.Get("/status/{environment}", s.HandleStatus)

	// Webhook routes with stricter rate limit
	r.Group(func(r chi.Router) {
		if !s.TestMode {
			r.Use(NewWebhookRateLimitMiddleware(WebhookRateLimit, s.Logger))
		}
		r.Post("/payload", s.HandlePayload)
		r.Post("/module", s.HandleModule)
	})

	return r
}

// Run serves on host:port until ctx is cancelled, then shuts down
// gracefully, letting in-flight dispatches finish.
func (s *Server) Run(ctx context.Context, host string, port int) error {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	s.Logger.Info("Starting server", "addr", addr)

	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Router(),
		ReadTimeout:  HTTPReadTimeout,
		WriteTimeout: s.RequestTimeout() + time.Second,
		IdleTimeout:  HTTPIdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		s.Logger.Info("Shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
