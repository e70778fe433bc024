package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/api/handler"
	"github.com/use-agent/harvester/api/middleware"
	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/download"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/store"
	"github.com/use-agent/harvester/vision"
	"github.com/use-agent/harvester/watch"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always work.
func NewRouter(
	fetcher *fetch.Fetcher,
	extractor *extract.Extractor,
	dm *download.Manager,
	wm *watch.Manager,
	vc *vision.Client,
	st *store.Store,
	cc *cache.Cache,
	cfg *config.Config,
	startTime time.Time,
) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	// Health — no auth required.
	v1.GET("/health", handler.Health(fetcher.Browser(), wm, startTime))

	// Protected group — auth + rate limit.
	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.GET("/ping", handler.Ping())

	// Extraction
	protected.POST("/extract", handler.Extract(fetcher, extractor, cc, cfg.Watch))

	// Downloads
	protected.POST("/download", handler.Download(dm))

	// Vision analysis
	protected.POST("/analyze", handler.Analyze(vc, st, fetcher.Browser()))

	// Watches
	protected.POST("/watch", handler.PostWatch(wm, fetcher, extractor))
	protected.DELETE("/watch/:id", handler.DeleteWatch(wm))
	protected.POST("/watch/:id/retry", handler.RetryWatch(wm))

	// Credential
	protected.PUT("/credential", handler.PutCredential(st))
	protected.GET("/credential", handler.GetCredential(st))

	// Batch
	protected.POST("/batch/extract", handler.PostBatch(fetcher, extractor, cfg.Watch))
	protected.GET("/batch/:id", handler.GetBatch())

	return r
}
