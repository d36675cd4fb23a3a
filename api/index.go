// Package handler is the serverless entry point. The platform calls Handler
// for every request; the service graph is built once per instance.
package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/alecthomas/kong"
	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/app"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	apphandler "github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/handler"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/model"
)

var (
	once     sync.Once
	server   *echo.Echo
	buildErr error
)

// Handler serves one request through the shared Echo instance.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() { server, buildErr = build() })
	if buildErr != nil {
		fmt.Fprintln(os.Stderr, "easyutilityhub: startup failed:", buildErr)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(model.ErrorResponse{Success: false, Message: "Server configuration error."})
		return
	}
	server.ServeHTTP(w, r)
}

// build resolves configuration from the environment and assembles the
// service without starting a listener.
func build() (*echo.Echo, error) {
	if _, err := config.LoadDotEnv(); err != nil {
		return nil, err
	}

	var cli config.CLI
	parser, err := kong.New(&cli, kong.Name("easyutilityhub"))
	if err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}
	if _, err := parser.Parse(nil); err != nil {
		return nil, fmt.Errorf("cli: %w", err)
	}

	var e *echo.Echo
	fxApp := fx.New(
		fx.Supply(&cli, apphandler.Version("serverless")),
		fx.Provide(config.Load),
		app.Module,
		fx.Populate(&e),
		fx.NopLogger,
	)
	if err := fxApp.Err(); err != nil {
		return nil, err
	}
	return e, nil
}
