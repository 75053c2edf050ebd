package http

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	applog "fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
)

// Options configures NewServer.
type Options struct {
	Addr string
	// StrictStatus switches error responses from 200 to 400/404/413.
	StrictStatus       bool
	RateLimitPerMinute int
	// Static is the UI bundle mounted at the root. Nil disables it.
	Static fs.FS
	Logger *applog.Logger
}

type Server struct {
	http.Server
	api          TransactionAPI
	strictStatus bool
	limiter      *ratelimit.Limiter
	tracer       *trace.Middleware
	logger       *applog.Logger
}

func NewServer(api TransactionAPI, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.Discard()
	}

	s := &Server{
		api:          api,
		strictStatus: opts.StrictStatus,
		limiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		tracer:       trace.NewMiddleware(clientIP),
		logger:       logger.WithComponent(applog.ComponentHTTP),
	}

	s.Server = http.Server{
		Addr:              opts.Addr,
		Handler:           s.routes(opts.Static),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(static fs.FS) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(applog.Middleware(s.logger))
	r.Use(s.tracer.Middleware)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady)
	r.Get("/metrics", s.handleMetrics)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(clientIP, ratelimit.ReadOnly, s.onRateLimited))

		r.Get("/transactions", s.handleListTransactions)
		r.Post("/transactions", s.handleCreateTransaction)
		r.Put("/transactions/{id}", s.handleUpdateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Get("/summary", s.handleSummary)
	})

	if static != nil {
		files := security.StaticAssetMiddleware(3600)(http.FileServer(http.FS(static)))
		r.Handle("/*", files)
	}
	return r
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	applog.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		applog.FieldClientIP, clientIP(r))
	s.write(w, r, ErrorResponse(http.StatusTooManyRequests, msgTooManyRequests))
}

// clientIP returns the host part of RemoteAddr, which RealIP has already
// rewritten from proxy headers.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Shutdown stops the rate limiter and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

// Metrics reports request and rate limiter counters.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics()
}
