package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/metrics"
)

// RegisterRoutes wires all route handlers onto the Echo instance.
func RegisterRoutes(e *echo.Echo, cfg *config.Config, m *metrics.Metrics, images *ImageHandler, tools *ToolHandler, health *HealthHandler) {
	e.GET("/healthz", health.Healthz)
	e.GET("/status", health.Status)

	if cfg.Metrics.Enabled {
		m.AddRoute(cfg.Metrics.Path)
		e.GET(cfg.Metrics.Path, echo.WrapHandler(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}

	api := e.Group("/api")
	api.POST("/remove-background", images.RemoveBackground)
	api.POST("/remove-background/raw", images.RemoveBackgroundRaw)
	api.POST("/grammar-check", tools.GrammarCheck)
	api.POST("/tone-analyze", tools.ToneAnalyze)
	api.POST("/word-game", tools.WordGame)
	api.POST("/name-generator", tools.NameGenerator)
	api.POST("/quiz", tools.Quiz)
	api.POST("/rewrite", tools.Rewrite)
}
