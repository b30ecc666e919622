package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
)

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type pingHandler struct{}

func (pingHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/api/ping", func(c echo.Context) error { return SuccessResponse(c, "pong") })
	e.GET("/api/missing", func(c echo.Context) error {
		return AppErrorResponse(c, NotFoundErrorf("run %s", "x").WithParam("id", "x"))
	})
}

var testRegistry = prometheus.NewRegistry()

func newTestServer(opts ...ServerOption) *Server {
	opts = append([]ServerOption{WithMetrics("/metrics", testRegistry, testRegistry)}, opts...)
	return NewServer(pingHandler{}, opts...)
}

func serve(s *Server, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestServerEnvelope(t *testing.T) {
	s := newTestServer()
	tests := []struct {
		target string
		status int
	}{
		{"/api/ping", http.StatusOK},
		{"/healthz", http.StatusOK},
		{"/api/missing", http.StatusNotFound},
		{"/no/such/route", http.StatusNotFound},
	}
	for _, tt := range tests {
		rec := serve(s, tt.target)
		if rec.Code != tt.status {
			t.Fatalf("%s: status %d, want %d", tt.target, rec.Code, tt.status)
		}
		var env APIResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: %v", tt.target, err)
		}
		if env.Status != tt.status {
			t.Fatalf("%s: envelope status %d", tt.target, env.Status)
		}
	}
}

func TestServerMetricsEndpoint(t *testing.T) {
	s := newTestServer()
	serve(s, "/api/ping")
	rec := serve(s, "/metrics")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "chartscan_http_requests_total") {
		t.Fatal("request counter not exported")
	}
}

func TestServerRateLimit(t *testing.T) {
	s := newTestServer(WithRateLimiter(denyAll{}))
	if rec := serve(s, "/api/ping"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status %d", rec.Code)
	} else if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
	for _, exempt := range []string{"/healthz", "/metrics"} {
		if rec := serve(s, exempt); rec.Code != http.StatusOK {
			t.Fatalf("%s limited: %d", exempt, rec.Code)
		}
	}
}
