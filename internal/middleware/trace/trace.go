// Package trace assigns request IDs and logs request start and completion.
package trace

import (
	"context"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	applog "fintrack/internal/log"
)

// RequestIDHeader is echoed back on every response.
const RequestIDHeader = "X-Request-ID"

// Middleware handles request tracing and logging
type Middleware struct {
	extractIP func(*http.Request) string
	metrics   *Metrics
}

// Metrics tracks request metrics
type Metrics struct {
	TotalRequests int64
	ServerErrors  int64
	// LastResponseTime in microseconds
	LastResponseTime int64
}

func NewMiddleware(extractIP func(*http.Request) string) *Middleware {
	return &Middleware{
		extractIP: extractIP,
		metrics:   &Metrics{},
	}
}

// Middleware must run after log.Middleware so the request logger is in the
// context; the request ID is added to it for downstream handlers.
func (m *Middleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := ""
		if m.extractIP != nil {
			clientIP = m.extractIP(r)
		}

		requestID := requestIDFrom(r)
		w.Header().Set(RequestIDHeader, requestID)

		logger := applog.FromContext(r.Context()).With(applog.FieldRequestID, requestID)
		ctx := applog.NewContext(r.Context(), logger)
		r = r.WithContext(ctx)

		logger.DebugContext(ctx, "HTTP request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldQuery, r.URL.RawQuery,
			applog.FieldClientIP, clientIP,
			applog.FieldUserAgent, r.Header.Get("User-Agent"))

		atomic.AddInt64(&m.metrics.TotalRequests, 1)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			// Record the panic as a server error, then let Recoverer answer.
			if rec := recover(); rec != nil {
				m.complete(ctx, logger, r, http.StatusInternalServerError, time.Since(start))
				panic(rec)
			}
		}()
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.complete(ctx, logger, r, status, time.Since(start))
	})
}

func (m *Middleware) complete(ctx context.Context, logger *applog.Logger, r *http.Request, status int, duration time.Duration) {
	atomic.StoreInt64(&m.metrics.LastResponseTime, duration.Microseconds())

	level := slog.LevelInfo
	switch {
	case status >= 500:
		level = slog.LevelError
		atomic.AddInt64(&m.metrics.ServerErrors, 1)
	case status >= 400:
		level = slog.LevelWarn
	}

	logger.Log(ctx, level, "HTTP request completed",
		applog.NewFields().
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").
			WithHTTPResponse(status, duration.Milliseconds(), status < 400).
			ToSlice()...)
}

// requestIDFrom reuses a well-formed incoming ID, otherwise mints one.
func requestIDFrom(r *http.Request) string {
	if id := r.Header.Get(RequestIDHeader); id != "" {
		if parsed, err := uuid.Parse(id); err == nil {
			return parsed.String()
		}
	}
	return uuid.NewString()
}

func (m *Middleware) GetMetrics() Metrics {
	return Metrics{
		TotalRequests:    atomic.LoadInt64(&m.metrics.TotalRequests),
		ServerErrors:     atomic.LoadInt64(&m.metrics.ServerErrors),
		LastResponseTime: atomic.LoadInt64(&m.metrics.LastResponseTime),
	}
}
