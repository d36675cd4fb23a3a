// Package app assembles the HTTP service with fx. Both the standalone server
// and the serverless entrypoint build on Module.
package app

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/fx"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/client"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/handler"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/middleware"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/service"
)

// Module provides a fully routed *echo.Echo. It expects *config.Config and
// handler.Version to be supplied by the caller.
var Module = fx.Module("easyutilityhub",
	fx.Provide(
		NewLogger,
		NewEcho,
		metrics.New,
		config.NewSecrets,
		client.NewUpstream,
		service.NewImageService,
		service.NewGenerativeService,
		handler.NewImageHandler,
		handler.NewToolHandler,
		handler.NewHealthHandler,
	),
	fx.Invoke(handler.RegisterRoutes),
)

// NewLogger builds the process logger from the [log] section.
func NewLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(cfg.Log.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Log.Format) {
	case "text":
		h = slog.NewTextHandler(os.Stdout, opts)
	default:
		h = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(h)
}

// NewEcho creates the Echo instance with the middleware chain in place.
// Routes are registered separately by handler.RegisterRoutes.
func NewEcho(cfg *config.Config, logger *slog.Logger, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Inbound timeouts to mitigate slow-client attacks. Writes get the vendor
	// timeout plus headroom for retries and backoff.
	e.Server.ReadTimeout = 30 * time.Second
	e.Server.WriteTimeout = writeTimeout(cfg)
	e.Server.IdleTimeout = 120 * time.Second
	e.Server.ReadHeaderTimeout = 10 * time.Second

	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(logger)
	e.Validator = handler.NewRequestValidator()

	// Logging and metrics sit outside Recover so a panicking request is
	// still recorded with its final 500.
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.Metrics(m))
	e.Use(echomw.Recover())
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.CORS(cfg.CORS))
	e.Use(echomw.BodyLimit(fmt.Sprintf("%dB", cfg.Server.BodyMaxBytes)))

	if cfg.Server.RateLimit.Enabled {
		e.Use(middleware.RateLimiter(cfg.Server.RateLimit))
		logger.Info("rate limiter enabled", "rps", cfg.Server.RateLimit.RequestsPerSecond)
	}

	return e
}

// writeTimeout bounds a whole response: every attempt may take the vendor
// timeout and backoff waits come on top.
func writeTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.Retry.Retries() + 1)
	per := time.Duration(cfg.Upstream.TimeoutSeconds) * time.Second
	backoff := cfg.Retry.MaxDelay()
	if backoff == 0 {
		backoff = cfg.Retry.BaseDelay() << cfg.Retry.Retries()
	}
	return attempts*per + attempts*backoff + 10*time.Second
}
