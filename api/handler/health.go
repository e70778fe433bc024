package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/watch"
)

// Health returns a handler for GET /api/v1/health.
//
// Reports page-pool utilisation and the active watch count; status degrades
// when > 80% of browser pages are active.
func Health(browser *fetch.Browser, wm *watch.Manager, startTime time.Time) gin.HandlerFunc {
	return func(c *gin.Context) {
		var stats models.PoolStats
		if browser != nil {
			stats = browser.Stats()
		}

		status := "healthy"
		if stats.MaxPages > 0 && stats.ActivePages > int(float64(stats.MaxPages)*0.8) {
			status = "degraded"
		}

		c.JSON(http.StatusOK, models.HealthResponse{
			Status:        status,
			Uptime:        time.Since(startTime).Round(time.Second).String(),
			PoolStats:     stats,
			ActiveWatches: wm.Count(),
			Version:       "0.1.0",
		})
	}
}

// Ping returns a handler for GET /api/v1/ping, a trivial reachability probe
// that exercises the auth middleware.
func Ping() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, models.PingResponse{
			Success: true,
			Message: "pong",
		})
	}
}
