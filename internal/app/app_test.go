package app

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/fx"
	"go.uber.org/fx/fxtest"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/handler"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
)

func testConfig() *config.Config {
	retries := 1
	return &config.Config{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8080, BodyMaxBytes: 64},
		CORS: config.CORSConfig{
			AllowOrigins: []string{"*"},
			AllowMethods: []string{"POST", "OPTIONS"},
			AllowHeaders: []string{"Content-Type"},
		},
		Upstream: config.UpstreamConfig{TimeoutSeconds: 5, IdleConnections: 4, MaxResponseBytes: 1 << 20},
		Retry: config.RetryConfig{
			MaxRetries:       &retries,
			BaseDelayMS:      100,
			Policy:           config.RetryOverloadAndTransport,
			OverloadStatuses: []int{503},
		},
		RemoveBG: config.RemoveBGConfig{BaseURL: "https://api.remove.bg"},
		Clipdrop: config.ClipdropConfig{BaseURL: "https://clipdrop-api.co"},
		Gemini:   config.GeminiConfig{BaseURL: "https://generativelanguage.googleapis.com", Model: "gemini-2.0-flash"},
		Log:      config.LogConfig{Level: "error", Format: "text"},
		Metrics:  config.MetricsConfig{Enabled: true, Path: "/metrics"},
	}
}

func newApp(t *testing.T, cfg *config.Config) *echo.Echo {
	t.Helper()
	var e *echo.Echo
	app := fxtest.New(t,
		fx.Supply(cfg, handler.Version("test")),
		Module,
		fx.Populate(&e),
		fx.NopLogger,
	)
	app.RequireStart()
	t.Cleanup(func() { app.RequireStop() })
	return e
}

func TestModule_Wiring(t *testing.T) {
	e := newApp(t, testConfig())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("/healthz status = %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("missing request id header")
	}
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing security headers")
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))
	if rec.Code != http.StatusOK {
		t.Errorf("/metrics status = %d", rec.Code)
	}
}

func TestModule_NoKeysMeansConfigurationError(t *testing.T) {
	e := newApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/rewrite", strings.NewReader(`{"text":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var env struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.Success || env.Message != "Server configuration error." {
		t.Errorf("envelope = %+v", env)
	}
}

func TestModule_BodyLimit(t *testing.T) {
	e := newApp(t, testConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/rewrite", strings.NewReader(`{"text":"`+strings.Repeat("a", 200)+`"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Request body is too large.") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestModule_RateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Server.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}
	e := newApp(t, cfg)

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/status", http.NoBody)
		req.RemoteAddr = "203.0.113.7:1234"
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Errorf("codes = %v, want first 200 and last 429", codes)
	}
}

func TestWriteTimeout(t *testing.T) {
	cfg := testConfig()
	// Two attempts of 5s each, two backoff allowances of 200ms, plus headroom.
	want := 10*time.Second + 400*time.Millisecond + 10*time.Second
	if got := writeTimeout(cfg); got != want {
		t.Errorf("writeTimeout = %v, want %v", got, want)
	}
}

func TestNewEcho_PanicIsLoggedAndCounted(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	m := metrics.New()

	e := NewEcho(testConfig(), logger, m)
	e.GET("/healthz", func(echo.Context) error { panic("boom") })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", http.NoBody))
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}

	var found bool
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		var entry struct {
			Msg       string `json:"msg"`
			Component string `json:"component"`
			Status    int    `json:"status"`
			RequestID string `json:"request_id"`
		}
		if err := json.Unmarshal(line, &entry); err != nil {
			t.Fatalf("unmarshal log line %q: %v", line, err)
		}
		if entry.Component == "access" && entry.Msg == "request" {
			found = true
			if entry.Status != http.StatusInternalServerError || entry.RequestID == "" {
				t.Errorf("access log = %+v, want status 500 with a request id", entry)
			}
		}
	}
	if !found {
		t.Errorf("no access log line for the panicking request; logs:\n%s", buf.String())
	}

	if got := testutil.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "500", "/healthz")); got != 1 {
		t.Errorf("requests_total{500,/healthz} = %v, want 1", got)
	}
}
