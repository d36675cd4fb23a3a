package middleware

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
)

func rateLimitedEcho() *echo.Echo {
	e := echo.New()
	// 1 request per second, burst of 1: the second request should be rejected.
	e.Use(RateLimiter(config.RateLimitConfig{Enabled: true, RequestsPerSecond: 1}))
	e.POST("/api/quiz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	return e
}

func TestRateLimiter_Enabled(t *testing.T) {
	e := rateLimitedEcho()

	if rec := serve(e, http.MethodPost, "/api/quiz"); rec.Code != http.StatusOK {
		t.Fatalf("first request: status = %d, want %d", rec.Code, http.StatusOK)
	}

	got429 := false
	for i := 0; i < 10; i++ {
		if rec := serve(e, http.MethodPost, "/api/quiz"); rec.Code == http.StatusTooManyRequests {
			got429 = true
			break
		}
	}
	if !got429 {
		t.Error("expected at least one 429 response after burst, got none")
	}
}

func TestRateLimiter_SkipsPreflightAndHealth(t *testing.T) {
	e := rateLimitedEcho()

	for i := 0; i < 5; i++ {
		if rec := serve(e, http.MethodGet, "/healthz"); rec.Code != http.StatusOK {
			t.Fatalf("healthz status = %d, want 200", rec.Code)
		}
		if rec := serve(e, http.MethodOptions, "/api/quiz"); rec.Code == http.StatusTooManyRequests {
			t.Fatal("preflight was rate limited")
		}
	}
}
