package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/cache"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/watch"
)

// Extract returns a handler for POST /api/v1/extract.
//
// Flow:
//  1. Parse & validate ExtractRequest, apply defaults.
//  2. Cache lookup when max_age is set.
//  3. Fetch the page; when wait_for_images is on, poll on a backoff
//     schedule until the collector finds at least one image or the wait
//     window elapses.
//  4. Run the extraction pass (images + metadata) on the final snapshot.
//  5. Assemble response with timing; populate the cache on success.
func Extract(fetcher *fetch.Fetcher, extractor *extract.Extractor, cc *cache.Cache, watchCfg config.WatchConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		totalStart := time.Now()

		var req models.ExtractRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.ExtractResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}
		req.Defaults()

		cacheKey := cache.Key(req.URL, req.FetchMode)
		if req.MaxAge > 0 {
			if cached, ok := cc.Get(cacheKey, req.MaxAge); ok {
				resp := *cached
				resp.CacheStatus = "hit"
				resp.Timing.TotalMs = time.Since(totalStart).Milliseconds()
				c.JSON(http.StatusOK, resp)
				return
			}
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Duration(req.Timeout)*time.Second)
		defer cancel()

		fetchStart := time.Now()
		result, imagesFound, err := fetchPage(ctx, fetcher, extractor, watchCfg, &req)
		fetchMs := time.Since(fetchStart).Milliseconds()

		if err != nil {
			respondExtractError(c, err, models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			})
			return
		}

		extractStart := time.Now()
		session, err := extractor.Extract(result.HTML, req.URL, req.ProductID)
		extractMs := time.Since(extractStart).Milliseconds()

		if err != nil {
			respondExtractError(c, err, models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ExtractMs: extractMs,
			})
			return
		}

		resp := models.ExtractResponse{
			Success:     true,
			Session:     session,
			ImagesFound: imagesFound,
			StatusCode:  result.StatusCode,
			EngineUsed:  result.Engine,
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ExtractMs: extractMs,
			},
		}
		if req.MaxAge > 0 {
			resp.CacheStatus = "miss"
			cc.Set(cacheKey, &resp)
		}
		c.JSON(http.StatusOK, resp)
	}
}

// fetchPage acquires the page, optionally holding the pass open until the
// image collector finds something. The last successful snapshot is always
// returned, so a wait window that times out still yields an extraction pass
// against whatever the page had.
func fetchPage(ctx context.Context, fetcher *fetch.Fetcher, extractor *extract.Extractor, watchCfg config.WatchConfig, req *models.ExtractRequest) (*fetch.Result, bool, error) {
	var mu sync.Mutex
	var last *fetch.Result

	fetchFn := func(ctx context.Context) (string, error) {
		res, err := fetcher.Fetch(ctx, &fetch.Request{
			URL:     req.URL,
			Stealth: req.Stealth,
			Mode:    req.FetchMode,
		})
		if err != nil {
			return "", err
		}
		mu.Lock()
		last = res
		mu.Unlock()
		return res.HTML, nil
	}

	if !*req.WaitForImages {
		html, err := fetchFn(ctx)
		if err != nil {
			return nil, false, err
		}
		return last, extractor.HasImages(html, req.URL), nil
	}

	w := watch.NewWatcher("", req.URL, req.ProductID, watchCfg, extractor, fetchFn, nil)
	found := w.WaitForImages(ctx)

	mu.Lock()
	defer mu.Unlock()
	if last == nil {
		// Every poll failed; surface the final attempt's error.
		_, err := fetcher.Fetch(ctx, &fetch.Request{
			URL:     req.URL,
			Stealth: req.Stealth,
			Mode:    req.FetchMode,
		})
		if err == nil {
			err = models.NewScrapeError(models.ErrCodeNavigation, "page could not be fetched", nil)
		}
		return nil, false, err
	}
	return last, found, nil
}

// respondExtractError maps a ScrapeError to the correct HTTP status and
// writes a structured JSON error response.
func respondExtractError(c *gin.Context, err error, timing models.TimingInfo) {
	se := asScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.ExtractResponse{
		Success: false,
		Error:   se.ToDetail(),
		Timing:  timing,
	})
}
