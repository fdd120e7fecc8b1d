// interfaces.go - Handler interface definitions for clean separation of concerns
package api

import (
	"github.com/labstack/echo/v4"
)

// PlanHandler handles stored plan operations
type PlanHandler interface {
	HandleListPlans(c echo.Context) error
	HandleGetPlan(c echo.Context) error
	HandleUploadPlan(c echo.Context) error
	HandleRenamePlan(c echo.Context) error
	HandleDeletePlan(c echo.Context) error
	HandleValidatePlan(c echo.Context) error
	HandleGetSchema(c echo.Context) error
}

// ExampleHandler handles the canned example library
type ExampleHandler interface {
	HandleListExamples(c echo.Context) error
	HandleGetExample(c echo.Context) error
	HandleSaveExample(c echo.Context) error
}

// GenerateHandler handles plan generation from prompts
type GenerateHandler interface {
	HandleGenerate(c echo.Context) error
	HandleListGenerations(c echo.Context) error
}

// PlayerHandler handles server-side players and their control surface
type PlayerHandler interface {
	HandleCreatePlayer(c echo.Context) error
	HandleListPlayers(c echo.Context) error
	HandleGetPlayer(c echo.Context) error
	HandleDeletePlayer(c echo.Context) error
	HandlePlayerKeepAlive(c echo.Context) error
	HandleLoadPlan(c echo.Context) error
	HandleControl(c echo.Context) error
	HandleGetFrame(c echo.Context) error
	HandleGetFrameMsgpack(c echo.Context) error
	HandleGetFramePNG(c echo.Context) error
	HandleGetFrameText(c echo.Context) error
	HandleSetVoices(c echo.Context) error
}

// HealthHandler handles health check operations
type HealthHandler interface {
	HandleHealth(c echo.Context) error
}

// StreamHandler handles the per-player websocket
type StreamHandler interface {
	HandleWebSocket(c echo.Context) error
}
