// handlers_health.go - Health check handlers
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/session"
)

// HealthHandlerImpl implements the HealthHandler interface
type HealthHandlerImpl struct {
	version string
	players *session.Manager
	library *library.Library
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(version string, players *session.Manager, lib *library.Library) HealthHandler {
	return &HealthHandlerImpl{
		version: version,
		players: players,
		library: lib,
	}
}

// HandleHealth returns server health status
func (h *HealthHandlerImpl) HandleHealth(c echo.Context) error {
	resp := map[string]interface{}{
		"status":  "ok",
		"version": h.version,
	}
	if h.players != nil {
		resp["players"] = h.players.Count()
	}
	if h.library != nil {
		resp["examples"] = h.library.Len()
	}
	return c.JSON(http.StatusOK, resp)
}
