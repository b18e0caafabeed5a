// Package router assembles the gin engine serving the release-radar API.
package router

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pandeptwidyaop/release-radar/internal/config"
	"github.com/pandeptwidyaop/release-radar/internal/handlers"
	"github.com/pandeptwidyaop/release-radar/internal/middleware"
	"github.com/pandeptwidyaop/release-radar/internal/services"
)

// New builds the engine. The returned rate limiter must be stopped when the
// server shuts down.
func New(cfg *config.Config, session *services.Session, authService *services.AuthService, logger *slog.Logger) (*gin.Engine, *middleware.RateLimiter) {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.PathPrefix(cfg.Server.PathPrefix))

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.GetWindow())

	appHandler := handlers.NewAppHandler(session, logger)
	auditHandler := handlers.NewAuditHandler(session.Audit)
	streamHandler := handlers.NewStreamHandler(session, logger)
	versionHandler := handlers.NewVersionHandler()

	prefix := r.Group(cfg.Server.PathPrefix)
	prefix.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := prefix.Group("/api")
	{
		api.GET("/version", versionHandler.Get)

		api.GET("/apps", appHandler.List)
		api.GET("/apps/:host/:name", appHandler.Get)
		api.GET("/apps/:host/:name/config", appHandler.Config)

		api.GET("/updates", auditHandler.List)
		api.GET("/updates/:id", auditHandler.Get)

		api.GET("/events", streamHandler.Events)
		api.GET("/ws", streamHandler.WebSocket)

		protected := api.Group("")
		protected.Use(limiter.Middleware())
		protected.Use(middleware.BodySizeLimit(middleware.MaxCommandBody))
		protected.Use(middleware.TokenRequired(authService))
		{
			protected.POST("/apps/:host/:name/refresh", appHandler.Refresh)
			protected.POST("/apps/:host/:name/update", appHandler.Update)
		}
	}

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "apps": session.Registry.Len()})
	})

	// Redirect root to path prefix (only if prefix is not empty)
	if cfg.Server.PathPrefix != "" && cfg.Server.PathPrefix != "/" {
		r.GET("/", func(c *gin.Context) {
			c.Redirect(http.StatusFound, cfg.Server.PathPrefix+"/api/apps")
		})
	}

	return r, limiter
}
