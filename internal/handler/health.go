package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/chaturvedibitan-tech/easyutilityhub-backend/internal/config"
)

// Version is a string type for dependency injection of the build version.
type Version string

// HealthHandler serves health and status endpoints.
type HealthHandler struct {
	cfg     *config.Config
	secrets *config.Secrets
	version Version
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(cfg *config.Config, secrets *config.Secrets, v Version) *HealthHandler {
	return &HealthHandler{cfg: cfg, secrets: secrets, version: v}
}

// Healthz returns a simple OK response for liveness probes.
func (h *HealthHandler) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

type statusResponse struct {
	Status      string          `json:"status"`
	Version     string          `json:"version"`
	Vendors     map[string]bool `json:"vendors"`
	RetryPolicy string          `json:"retry_policy"`
	MaxRetries  int             `json:"max_retries"`
}

// Status reports the build version and which vendors have a key configured.
// Keys themselves are never included.
func (h *HealthHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		Status:      "ok",
		Version:     string(h.version),
		Vendors:     h.secrets.Configured(),
		RetryPolicy: h.cfg.Retry.Policy,
		MaxRetries:  h.cfg.Retry.Retries(),
	})
}
