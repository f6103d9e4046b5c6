package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hpcbench/picalc/internal/config"
	apperrors "github.com/hpcbench/picalc/internal/errors"
	"github.com/hpcbench/picalc/internal/logging"
	"github.com/hpcbench/picalc/pkg/models"
)

// newTestServer initializes a server instance with a silent logger and an
// ephemeral listen address.
func newTestServer(opts ...Option) *Server {
	cfg := config.AppConfig{MetricsAddr: "127.0.0.1:0"}
	base := []Option{WithLogger(logging.NewNopLogger())}
	return NewServer(cfg, append(base, opts...)...)
}

// sampleResult fabricates a completed run record for the given algorithm.
func sampleResult(algorithm string, decimals int) *models.Result {
	res := &models.Result{
		Library:    "big",
		Algorithm:  algorithm,
		Label:      algorithm,
		Precision:  decimals,
		Iterations: decimals / 3,
		Procs:      1,
		Threads:    4,
		Decimals:   decimals,
		Pi:         "3." + strings.Repeat("14159265358979323846", (decimals+19)/20)[:decimals],
	}
	res.SetDuration(250 * time.Millisecond)
	return res
}

// TestHandleHealthz verifies the liveness probe endpoint.
func TestHandleHealthz(t *testing.T) {
	srv := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody)
	w := httptest.NewRecorder()

	srv.handleHealthz(w, req)

	resp := w.Result()
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var healthResp map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&healthResp); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}

	if healthResp["status"] != "healthy" {
		t.Errorf("Expected status=healthy, got %v", healthResp["status"])
	}
	if _, ok := healthResp["timestamp"]; !ok {
		t.Error("Expected timestamp field in health response")
	}
}

// resultListResponse mirrors the JSON shape of the /result listing.
type resultListResponse struct {
	Count   int              `json:"count"`
	Results []*models.Result `json:"results"`
}

// TestHandleResult verifies the run record endpoint in its listing and
// single-lookup forms.
func TestHandleResult(t *testing.T) {
	tests := []struct {
		name           string
		record         []*models.Result
		target         string
		expectedStatus int
		check          func(t *testing.T, body []byte)
	}{
		{
			name:           "Empty store",
			target:         "/result",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var list resultListResponse
				if err := json.Unmarshal(body, &list); err != nil {
					t.Fatalf("Failed to unmarshal listing: %v", err)
				}
				if list.Count != 0 {
					t.Errorf("Expected count=0, got %d", list.Count)
				}
				if len(list.Results) != 0 {
					t.Errorf("Expected no results, got %d", len(list.Results))
				}
			},
		},
		{
			name: "Listing is sorted by algorithm",
			record: []*models.Result{
				sampleResult("chudnovsky", 100),
				sampleResult("bbp", 100),
				sampleResult("bellard", 100),
			},
			target:         "/result",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var list resultListResponse
				if err := json.Unmarshal(body, &list); err != nil {
					t.Fatalf("Failed to unmarshal listing: %v", err)
				}
				if list.Count != 3 {
					t.Fatalf("Expected count=3, got %d", list.Count)
				}
				order := []string{"bbp", "bellard", "chudnovsky"}
				for i, want := range order {
					if list.Results[i].Algorithm != want {
						t.Errorf("Result %d: expected algorithm %q, got %q", i, want, list.Results[i].Algorithm)
					}
				}
			},
		},
		{
			name: "Single lookup",
			record: []*models.Result{
				sampleResult("bbp", 80),
				sampleResult("bellard", 80),
			},
			target:         "/result?algorithm=bellard",
			expectedStatus: http.StatusOK,
			check: func(t *testing.T, body []byte) {
				var res models.Result
				if err := json.Unmarshal(body, &res); err != nil {
					t.Fatalf("Failed to unmarshal record: %v", err)
				}
				if res.Algorithm != "bellard" {
					t.Errorf("Expected algorithm=bellard, got %q", res.Algorithm)
				}
				if res.Decimals != 80 {
					t.Errorf("Expected decimals=80, got %d", res.Decimals)
				}
				if res.ExecutionSeconds != 0.25 {
					t.Errorf("Expected execution_seconds=0.25, got %v", res.ExecutionSeconds)
				}
			},
		},
		{
			name:           "Unknown algorithm",
			record:         []*models.Result{sampleResult("bbp", 80)},
			target:         "/result?algorithm=riemann",
			expectedStatus: http.StatusNotFound,
			check: func(t *testing.T, body []byte) {
				var errResp ErrorResponse
				if err := json.Unmarshal(body, &errResp); err != nil {
					t.Fatalf("Failed to unmarshal error response: %v", err)
				}
				if !strings.Contains(errResp.Message, "riemann") {
					t.Errorf("Expected message naming the algorithm, got %q", errResp.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer()
			for _, res := range tt.record {
				srv.Record(res)
			}

			req := httptest.NewRequest(http.MethodGet, tt.target, http.NoBody)
			w := httptest.NewRecorder()

			srv.handleResult(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, resp.StatusCode)
			}

			body, _ := io.ReadAll(resp.Body)
			tt.check(t, body)
		})
	}
}

// TestRecord verifies the replace semantics and guards of the record store.
func TestRecord(t *testing.T) {
	srv := newTestServer()

	first := sampleResult("bbp", 50)
	srv.Record(first)

	second := sampleResult("bbp", 200)
	srv.Record(second)

	if got := len(srv.snapshot()); got != 1 {
		t.Fatalf("Expected 1 record after re-recording same algorithm, got %d", got)
	}

	stored, ok := srv.results.Load("bbp")
	if !ok {
		t.Fatal("Expected record for bbp")
	}
	if stored.Decimals != 200 {
		t.Errorf("Expected latest record (200 decimals), got %d", stored.Decimals)
	}

	// Nil and unnamed records are dropped.
	srv.Record(nil)
	srv.Record(&models.Result{})
	if got := len(srv.snapshot()); got != 1 {
		t.Errorf("Expected guards to drop invalid records, store has %d", got)
	}
}

// TestMethodNotAllowed verifies that non-GET methods are rejected.
func TestMethodNotAllowed(t *testing.T) {
	srv := newTestServer()

	tests := []struct {
		name     string
		endpoint string
		handler  http.HandlerFunc
	}{
		{"Healthz POST", "/healthz", srv.handleHealthz},
		{"Result POST", "/result", srv.handleResult},
		{"Metrics POST", "/metrics", srv.handleMetrics},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.endpoint, http.NoBody)
			w := httptest.NewRecorder()

			tt.handler(w, req)

			resp := w.Result()
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusMethodNotAllowed {
				t.Errorf("Expected status 405, got %d", resp.StatusCode)
			}
		})
	}
}

// TestLoggingMiddleware verifies that the logging middleware executes the
// next handler.
func TestLoggingMiddleware(t *testing.T) {
	srv := newTestServer()

	handlerCalled := false
	wrapped := srv.loggingMiddleware(func(w http.ResponseWriter, r *http.Request) {
		handlerCalled = true
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	w := httptest.NewRecorder()

	wrapped(w, req)

	if !handlerCalled {
		t.Error("Handler was not called")
	}
}

// TestWithLogger verifies the logger options.
func TestWithLogger(t *testing.T) {
	cfg := config.AppConfig{MetricsAddr: "127.0.0.1:0"}

	srv := NewServer(cfg, WithLogger(nil))
	if srv.logger == nil {
		t.Error("expected default logger to survive nil option")
	}

	customLogger := log.New(io.Discard, "[CUSTOM] ", 0)
	srv = NewServer(cfg, WithStdLogger(customLogger))
	if srv.logger == nil {
		t.Error("expected custom logger to be set")
	}
}

// TestWithTimeouts verifies the WithTimeouts option.
func TestWithTimeouts(t *testing.T) {
	customTimeouts := Timeouts{
		ShutdownTimeout: 60 * time.Second,
		ReadTimeout:     5 * time.Second,
		WriteTimeout:    15 * time.Minute,
		IdleTimeout:     5 * time.Minute,
	}

	srv := newTestServer(WithTimeouts(customTimeouts))

	if srv.timeouts.ShutdownTimeout != customTimeouts.ShutdownTimeout {
		t.Errorf("expected ShutdownTimeout=%v, got %v", customTimeouts.ShutdownTimeout, srv.timeouts.ShutdownTimeout)
	}
	if srv.httpServer.ReadTimeout != customTimeouts.ReadTimeout {
		t.Errorf("expected ReadTimeout=%v, got %v", customTimeouts.ReadTimeout, srv.httpServer.ReadTimeout)
	}
	if srv.httpServer.WriteTimeout != customTimeouts.WriteTimeout {
		t.Errorf("expected WriteTimeout=%v, got %v", customTimeouts.WriteTimeout, srv.httpServer.WriteTimeout)
	}
}

// TestRunGracefulShutdown verifies that Run stops cleanly when the context
// is canceled.
func TestRunGracefulShutdown(t *testing.T) {
	srv := newTestServer()

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- srv.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() returned error on graceful shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run() did not return after context cancellation")
	}
}

// TestRunListenError verifies that an unusable listen address surfaces as a
// server error.
func TestRunListenError(t *testing.T) {
	cfg := config.AppConfig{MetricsAddr: "127.0.0.1:-1"}
	srv := NewServer(cfg, WithLogger(logging.NewNopLogger()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := srv.Run(ctx)
	if err == nil {
		t.Fatal("expected error for invalid listen address")
	}

	var srvErr apperrors.ServerError
	if !errors.As(err, &srvErr) {
		t.Errorf("expected ServerError, got %T: %v", err, err)
	}
}
