package http

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"github.com/taketurn/taketurn/internal/interfaces/http/middleware"
	"github.com/taketurn/taketurn/internal/interfaces/http/routes"
	"github.com/taketurn/taketurn/internal/shared/utils"
)

func (c *Container) setupRoutes() {
	c.engine.Use(middleware.RequestID())
	c.engine.Use(middleware.Logger(c.log))
	c.engine.Use(middleware.Recovery(c.log))
	c.engine.Use(middleware.CORS(c.cfg.Server.AllowedOrigins))

	c.engine.GET("/healthz", c.health)

	if c.recorder != nil {
		c.engine.GET(c.metricsPath(), gin.WrapH(c.recorder.Handler()))
	}

	var rateLimit gin.HandlerFunc
	if c.limiter != nil {
		rateLimit = middleware.RateLimit(c.limiter, c.log)
	}

	routes.SetupTurnRoutes(c.engine, &routes.TurnRouteConfig{
		Handler:       c.turnHandler,
		SocketHandler: c.socketHandler,
		RateLimit:     rateLimit,
	})

	c.engine.NoRoute(c.staticFallback())
}

func (c *Container) metricsPath() string {
	if c.cfg.Metrics.Path == "" {
		return "/metrics"
	}
	return c.cfg.Metrics.Path
}

func (c *Container) health(ctx *gin.Context) {
	ref, ok := c.service.Current()
	ctx.JSON(http.StatusOK, gin.H{
		"status":              "ok",
		"next_available_turn": ref.NextAvailableTurn,
		"allocated":           ok,
		"listeners":           c.hub.Count(),
	})
}

// staticFallback serves the browser pages such as assign.html and
// thanks.html from the configured directory for any unmatched GET.
func (c *Container) staticFallback() gin.HandlerFunc {
	dir := c.cfg.Server.StaticDir
	if info, err := os.Stat(dir); dir == "" || err != nil || !info.IsDir() {
		if dir != "" {
			c.log.Warnw("static directory unavailable, unmatched routes return 404", "dir", dir)
		}
		return notFound
	}

	files := http.FileServer(gin.Dir(dir, false))
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodGet && ctx.Request.Method != http.MethodHead {
			notFound(ctx)
			return
		}
		files.ServeHTTP(ctx.Writer, ctx.Request)
	}
}

func notFound(ctx *gin.Context) {
	utils.ErrorResponse(ctx, http.StatusNotFound, "route not found")
}
