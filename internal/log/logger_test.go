package log

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" WARN ", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: "app", Format: "json", Output: &buf})

	logger.WithComponent(ComponentGateway).Info("Remote list failed", FieldKind, "ledger")

	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("output is not JSON: %q", buf.String())
	}
	if line[FieldComponent] != ComponentGateway || line[FieldKind] != "ledger" {
		t.Fatalf("unexpected fields %v", line)
	}
}

func TestLevelFiltersDebug(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: slog.LevelInfo, Component: "app", Output: &buf})
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug line written at info level: %q", buf.String())
	}
}

func TestFromContext(t *testing.T) {
	if got := FromContext(context.Background()).Component(); got != "unknown" {
		t.Fatalf("component without logger = %q", got)
	}

	var buf bytes.Buffer
	logger := New(Config{Component: "app", Output: &buf})
	mw := ComponentMiddleware(ComponentHTTP)
	var seen string
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = FromContext(r.Context()).Component()
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(context.WithValue(req.Context(), LoggerContextKey, logger))
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != ComponentHTTP {
		t.Fatalf("component = %q, want %q", seen, ComponentHTTP)
	}
}

func TestStructuredLoggerWritesOneComponent(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/ledgers", nil)
	tests := []struct {
		name string
		log  func(*StructuredLogger)
		want string
	}{
		{"request end", func(sl *StructuredLogger) {
			sl.LogHTTPEnd(context.Background(), req, http.StatusCreated, 3, "10.0.0.1")
		}, ComponentHTTP},
		{"record saved", func(sl *StructuredLogger) {
			sl.LogRecordSaved(context.Background(), "u1", "ledger", "l1", http.MethodPost)
		}, ComponentGateway},
		{"error with component", func(sl *StructuredLogger) {
			sl.LogError(context.Background(), "boom", context.Canceled, ComponentAuth, "signin", NewFields())
		}, ComponentAuth},
		{"error without component", func(sl *StructuredLogger) {
			sl.LogError(context.Background(), "boom", context.Canceled, "", "signin", NewFields())
		}, "app"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(NewStructuredLogger(New(Config{Component: "app", Format: "json", Output: &buf})))

			if n := bytes.Count(buf.Bytes(), []byte(`"`+FieldComponent+`":`)); n != 1 {
				t.Fatalf("component written %d times: %s", n, buf.String())
			}
			var line map[string]any
			if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
				t.Fatalf("output is not JSON: %q", buf.String())
			}
			if line[FieldComponent] != tt.want {
				t.Fatalf("component = %v, want %q", line[FieldComponent], tt.want)
			}
		})
	}
}
