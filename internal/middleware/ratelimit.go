package middleware

import (
	"math"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
)

// RateLimiter limits requests per client IP. Preflights and health probes are
// never limited. Rejections surface as *echo.HTTPError so the central error
// handler writes the usual envelope.
func RateLimiter(cfg config.RateLimitConfig) echo.MiddlewareFunc {
	store := echomw.NewRateLimiterMemoryStoreWithConfig(echomw.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(cfg.RequestsPerSecond),
		Burst:     max(1, int(math.Ceil(cfg.RequestsPerSecond))),
		ExpiresIn: 3 * time.Minute,
	})

	return echomw.RateLimiterWithConfig(echomw.RateLimiterConfig{
		Skipper: func(c echo.Context) bool {
			return c.Request().Method == http.MethodOptions || c.Request().URL.Path == "/healthz"
		},
		Store: store,
		DenyHandler: func(_ echo.Context, _ string, _ error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many requests. Please slow down.")
		},
	})
}
