package routes

import (
	"github.com/gin-gonic/gin"

	turnHandlers "github.com/taketurn/taketurn/internal/interfaces/http/handlers/turn"
)

// TurnRouteConfig holds the configuration for turn routes
type TurnRouteConfig struct {
	Handler       *turnHandlers.TurnHandler
	SocketHandler *turnHandlers.SocketHandler

	// RateLimit guards every route that touches the store. Nil disables it.
	RateLimit gin.HandlerFunc
}

// SetupTurnRoutes configures the JSON API and the browser flow routes
func SetupTurnRoutes(engine *gin.Engine, config *TurnRouteConfig) {
	engine.GET("/", config.Handler.Root)
	engine.GET("/wss", config.SocketHandler.Subscribe)

	limited := engine.Group("")
	if config.RateLimit != nil {
		limited.Use(config.RateLimit)
	}
	{
		limited.GET("/all", config.Handler.ListAll)
		limited.GET("/assign/:id", config.Handler.ReserveAndRedirect)
		limited.GET("/getTurn/:id", config.Handler.AssignAndRedirect)
		limited.POST("/getTurn/:id", config.Handler.AssignAndRedirect)
		limited.POST("/reset", config.Handler.Reset)
	}

	turns := limited.Group("/api/v1/turns")
	{
		// Static paths before parameterized ones
		turns.GET("", config.Handler.ListTurns)
		turns.GET("/next", config.Handler.NextTurn)

		turns.POST("/:id/reserve", config.Handler.ReserveTurn)
		turns.POST("/:id/assign", config.Handler.AssignTurn)
	}
}
