package log

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"bogus":   slog.LevelInfo,
		"":        slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewJSONCarriesComponentOnce(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "json", Component: ComponentLedger, Output: &buf})
	l.Info("hello", FieldCount, 3)

	line := strings.TrimSpace(buf.String())
	if strings.Count(line, `"component"`) != 1 {
		t.Fatalf("component should appear once: %s", line)
	}
	var rec map[string]any
	if err := json.Unmarshal([]byte(line), &rec); err != nil {
		t.Fatalf("invalid json log line: %v", err)
	}
	if rec[FieldComponent] != ComponentLedger || rec[FieldCount] != float64(3) {
		t.Fatalf("unexpected record: %v", rec)
	}
}

func TestLogErrorFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelInfo, Format: "text", Output: &buf})
	l.LogError(context.Background(), "save failed", errors.New("disk full"), OpSave, nil)
	out := buf.String()
	for _, want := range []string{"save failed", "error=\"disk full\"", "operation=save"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestFieldsToSliceSorted(t *testing.T) {
	got := NewFields().WithOperation(OpList).WithError(errors.New("x")).ToSlice()
	if len(got) != 4 || got[0] != FieldError || got[2] != FieldOperation {
		t.Fatalf("unexpected slice %v", got)
	}
}

func TestMiddlewareAndFromContext(t *testing.T) {
	l := Discard().WithComponent(ComponentHTTP)
	var seen *Logger
	h := Middleware(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context())
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == nil || seen.Component() != ComponentHTTP {
		t.Fatalf("expected http component logger in context, got %+v", seen)
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}
