// routes.go - Route registration helpers
// This file provides a clean way to register all API routes
package api

import (
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/code-animator/backend/internal/generator"
	"github.com/code-animator/backend/internal/library"
	"github.com/code-animator/backend/internal/metrics"
	"github.com/code-animator/backend/internal/session"
	"github.com/code-animator/backend/internal/storage"
)

// Dependencies holds all handler dependencies
type Dependencies struct {
	Store       storage.Store
	Generations storage.GenerationLog // optional
	Players     *session.Manager
	Library     *library.Library
	Generator   generator.Generator // nil disables generation
	Metrics     *metrics.PlayerMetrics
	Version     string

	// NarrationByDefault turns narration on for newly created players.
	NarrationByDefault bool
	// WebSocketMaxMessageSize bounds client websocket messages in bytes.
	WebSocketMaxMessageSize int64
}

// Handlers holds all handler instances
type Handlers struct {
	Health   HealthHandler
	Plans    PlanHandler
	Examples ExampleHandler
	Generate GenerateHandler
	Players  PlayerHandler
	Stream   StreamHandler
}

// NewHandlers creates all handler instances
func NewHandlers(deps *Dependencies) *Handlers {
	return &Handlers{
		Health:   NewHealthHandler(deps.Version, deps.Players, deps.Library),
		Plans:    NewPlanHandler(deps.Store),
		Examples: NewExampleHandler(deps.Library, deps.Store),
		Generate: NewGenerateHandler(deps.Generator, deps.Store, deps.Generations, deps.Metrics),
		Players:  NewPlayerHandler(deps),
		Stream:   NewWebSocketHandler(deps.Players, deps.Metrics, deps.WebSocketMaxMessageSize),
	}
}

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, handlers *Handlers) {
	apiGroup := e.Group("/api")

	// Health check
	apiGroup.GET("/health", handlers.Health.HandleHealth)

	// Stored plans
	planGroup := apiGroup.Group("/plans")
	planGroup.GET("", handlers.Plans.HandleListPlans)
	planGroup.POST("", handlers.Plans.HandleUploadPlan)
	planGroup.POST("/validate", handlers.Plans.HandleValidatePlan)
	planGroup.GET("/schema", handlers.Plans.HandleGetSchema)
	planGroup.GET("/:id", handlers.Plans.HandleGetPlan)
	planGroup.PUT("/:id", handlers.Plans.HandleRenamePlan)
	planGroup.DELETE("/:id", handlers.Plans.HandleDeletePlan)

	// Example library
	exampleGroup := apiGroup.Group("/examples")
	exampleGroup.GET("", handlers.Examples.HandleListExamples)
	exampleGroup.GET("/:slug", handlers.Examples.HandleGetExample)
	exampleGroup.POST("/:slug/save", handlers.Examples.HandleSaveExample)

	// Generation
	apiGroup.POST("/generate", handlers.Generate.HandleGenerate)
	apiGroup.GET("/generations", handlers.Generate.HandleListGenerations)

	// Players
	playerGroup := apiGroup.Group("/players")
	playerGroup.POST("", handlers.Players.HandleCreatePlayer)
	playerGroup.GET("", handlers.Players.HandleListPlayers)
	playerGroup.GET("/:id", handlers.Players.HandleGetPlayer)
	playerGroup.DELETE("/:id", handlers.Players.HandleDeletePlayer)
	playerGroup.POST("/:id/keepalive", handlers.Players.HandlePlayerKeepAlive)
	playerGroup.POST("/:id/plan", handlers.Players.HandleLoadPlan)
	playerGroup.POST("/:id/controls", handlers.Players.HandleControl)
	playerGroup.POST("/:id/voices", handlers.Players.HandleSetVoices)
	playerGroup.GET("/:id/frame", handlers.Players.HandleGetFrame)
	playerGroup.GET("/:id/frame/msgpack", handlers.Players.HandleGetFrameMsgpack)
	playerGroup.GET("/:id/frame/png", handlers.Players.HandleGetFramePNG)
	playerGroup.GET("/:id/frame/text", handlers.Players.HandleGetFrameText)

	RegisterWebSocketRoutes(e, handlers)
}

// RegisterWebSocketRoutes registers WebSocket routes
func RegisterWebSocketRoutes(e *echo.Echo, handlers *Handlers) {
	e.GET("/api/players/:id/ws", handlers.Stream.HandleWebSocket)
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, requestLogging bool) {
	// Use custom error handler
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{
		Skipper: func(c echo.Context) bool {
			if !requestLogging {
				return true
			}
			path := c.Request().URL.Path
			return path == "/api/health" ||
				strings.HasSuffix(path, "/ws") ||
				strings.HasSuffix(path, "/keepalive")
		},
	}))

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		StackSize:         1024 * 4,
		DisablePrintStack: false,
	}))
}
