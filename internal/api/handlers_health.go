// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version  string
	store    string
	provider string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version, store, provider string) HealthHandler {
	return &HealthHandlerImpl{
		version:  version,
		store:    store,
		provider: provider,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"version": h.version,
		"store":   h.store,
		"model":   h.provider,
	})
}
