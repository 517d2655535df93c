package api

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(h *Handler, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	api.GET("/cron/scrape", h.TriggerScrape)

	listings := api.Group("/listings/:listingId")
	listings.POST("/refresh", h.RefreshListing)
	listings.GET("/snapshots", h.ListSnapshots)
	listings.GET("/events", h.ListEvents)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
