package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/app"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/handler"
)

// Set by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	// Variables from .env feed Kong's env tags, so load them first.
	if _, err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var cli config.CLI
	kong.Parse(&cli,
		kong.Name("easyutilityhub"),
		kong.Description("Backend proxy for the EasyUtilityHub image and text tools."),
		kong.Vars{"version": fmt.Sprintf("%s (%s, %s)", version, commit, date)},
	)

	fx.New(
		fx.Provide(
			func() *config.CLI { return &cli },
			func() handler.Version { return handler.Version(version) },
			config.Load,
		),
		app.Module,
		fx.Invoke(warnConfigPermissions, logVendors, startServer),
	).Run()
}

func warnConfigPermissions(cfg *config.Config, logger *slog.Logger) {
	cfg.WarnPermissions(logger)
}

// logVendors reports at startup which vendors will answer and which will
// fail with a configuration error.
func logVendors(secrets *config.Secrets, logger *slog.Logger) {
	for vendor, ok := range secrets.Configured() {
		if !ok {
			logger.Warn("vendor API key not configured; its routes will return a configuration error", "vendor", vendor)
		}
	}
}

func startServer(lc fx.Lifecycle, e *echo.Echo, cfg *config.Config, logger *slog.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			addr := cfg.Server.Addr()
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("bind %s: %w", addr, err)
			}
			logger.Info("starting server", "addr", addr, "version", version)
			go func() {
				if err := e.Server.Serve(ln); err != nil && err != http.ErrServerClosed {
					logger.Error("server error", "err", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			logger.Info("shutting down server")
			return e.Shutdown(ctx)
		},
	})
}
