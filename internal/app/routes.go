package app

import (
	"context"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kwportal/igcse-tutor-bot/internal/buildinfo"
	"github.com/kwportal/igcse-tutor-bot/internal/config"
)

// newRouter builds the HTTP surface.
//
// Telegram posts updates to /api/webhook, but any unrouted POST is also
// treated as a delivery so a webhook registered at another path keeps working.
func (a *Application) newRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(sentrygin.New(sentrygin.Options{Repanic: true}))
	router.Use(securityHeadersMiddleware())
	router.Use(loggingMiddleware(a.logger))

	router.GET("/livez", a.livenessCheck)
	router.HEAD("/livez", a.livenessCheck)
	router.GET("/readyz", a.readinessCheck)
	router.HEAD("/readyz", a.readinessCheck)

	api := router.Group("/api")
	api.GET("/webhook", a.buildPing)
	api.POST("/webhook", a.webhookHandler.Handle)
	api.GET("/health", a.health)
	api.GET("/health/*path", a.health)
	api.GET("/wa", a.redirectHandler.Handle)

	router.GET("/metrics",
		metricsAuthMiddleware(a.cfg.MetricsUsername, a.cfg.MetricsPassword),
		gin.WrapH(promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{})))

	router.NoRoute(func(c *gin.Context) {
		if c.Request.Method == http.MethodPost {
			a.webhookHandler.Handle(c)
			return
		}
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "not found"})
	})

	return router
}

// buildPing reports the build and what the bot has loaded.
func (a *Application) buildPing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":       true,
		"build":    buildinfo.BuildTag,
		"teachers": a.catalog.Len(),
		"bot":      a.bot.Configured(),
	})
}

func (a *Application) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"msg":       "Running",
		"has_token": a.cfg.HasBotToken(),
	})
}

func (a *Application) livenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "alive",
	})
}

// readinessCheck fails only when the configured database is unreachable.
// An empty catalog is reported but still ready: the bot answers with
// "no matches" rather than not at all.
func (a *Application) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), config.ReadinessCheckTimeout)
	defer cancel()

	database := "memory"
	if a.db != nil {
		if err := a.db.Ping(ctx); err != nil {
			a.logger.WithError(err).Warn("Readiness check failed: database unavailable")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "not ready",
				"reason": "database unavailable",
			})
			return
		}
		database = "connected"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   "ready",
		"database": database,
		"teachers": a.catalog.Len(),
		"features": a.getFeatures(),
	})
}

func (a *Application) getFeatures() map[string]bool {
	return map[string]bool{
		"bot":             a.bot != nil && a.bot.Configured(),
		"signed_links":    a.cfg.PublicBaseURL != "" && a.cfg.WASigningSecret != "",
		"click_analytics": a.analytics != nil,
	}
}
