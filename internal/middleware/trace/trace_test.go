package trace

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "fintrack/internal/log"
)

func TestMiddleware_AssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Level: slog.LevelInfo, Format: "text", Component: applog.ComponentHTTP, Output: &buf})

	m := NewMiddleware(func(*http.Request) string { return "10.0.0.1" })
	h := applog.Middleware(logger)(m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		applog.FromContext(r.Context()).InfoContext(r.Context(), "handler ran")
		w.WriteHeader(http.StatusNotFound)
	})))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	seenID := rec.Header().Get(RequestIDHeader)
	if _, err := uuid.Parse(seenID); err != nil {
		t.Fatalf("expected uuid request id, got %q", seenID)
	}
	if !strings.Contains(buf.String(), `msg="handler ran"`) || strings.Count(buf.String(), "request_id="+seenID) < 2 {
		t.Fatalf("handler logger should carry the request id: %q", buf.String())
	}
	out := buf.String()
	for _, want := range []string{"HTTP request completed", "status_code=404", "request_id=" + seenID, "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in log output %q", want, out)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Fatalf("TotalRequests = %d", got)
	}
}

func TestMiddleware_ReusesValidIncomingID(t *testing.T) {
	m := NewMiddleware(nil)
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	incoming := uuid.NewString()
	tests := []struct {
		name   string
		header string
		reuse  bool
	}{
		{"valid uuid", incoming, true},
		{"garbage", "<script>", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(RequestIDHeader, tt.header)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			got := rec.Header().Get(RequestIDHeader)
			if (got == tt.header) != tt.reuse {
				t.Fatalf("got %q for incoming %q", got, tt.header)
			}
		})
	}
}
