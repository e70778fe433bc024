package handler

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/watch"
)

// PostWatch returns a handler for POST /api/v1/watch.
//
// It runs one startup extraction pass (holding the pass open until images
// appear or the wait window elapses), registers a watcher seeded with that
// pass as its change baseline, and returns the initial session plus the
// watch id. Subsequent sessions are delivered via webhook when the request
// named one.
func PostWatch(wm *watch.Manager, fetcher *fetch.Fetcher, extractor *extract.Extractor) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.WatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondWatchError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err))
			return
		}

		var mu sync.Mutex
		var lastHTML string
		fetchFn := func(ctx context.Context) (string, error) {
			res, err := fetcher.Fetch(ctx, &fetch.Request{URL: req.URL, Mode: fetch.ModeAuto})
			if err != nil {
				return "", err
			}
			mu.Lock()
			lastHTML = res.HTML
			mu.Unlock()
			return res.HTML, nil
		}

		probe := watch.NewWatcher("", req.URL, "", wm.Config(), extractor, fetchFn, nil)
		probe.WaitForImages(c.Request.Context())

		mu.Lock()
		html := lastHTML
		mu.Unlock()
		if html == "" {
			respondWatchError(c, models.NewScrapeError(models.ErrCodeNavigation,
				"page could not be fetched", nil))
			return
		}

		session, err := extractor.Extract(html, req.URL, "")
		if err != nil {
			respondWatchError(c, err)
			return
		}

		w := wm.Start(req.URL, session.Metadata.ProductID, req.WebhookURL, fetchFn, html, session)

		c.JSON(http.StatusOK, models.WatchResponse{
			Success: true,
			WatchID: w.ID(),
			Status:  "observing",
			Session: session,
		})
	}
}

// DeleteWatch returns a handler for DELETE /api/v1/watch/:id.
func DeleteWatch(wm *watch.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		if err := wm.Stop(id); err != nil {
			respondWatchError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.WatchResponse{
			Success: true,
			WatchID: id,
			Status:  "stopped",
		})
	}
}

// RetryWatch returns a handler for POST /api/v1/watch/:id/retry. It forces
// an immediate re-extraction pass on the identified watch, bypassing the
// debounce, and returns the fresh session synchronously.
func RetryWatch(wm *watch.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		session, err := wm.ForceRetry(c.Request.Context(), id)
		if err != nil {
			respondWatchError(c, err)
			return
		}
		c.JSON(http.StatusOK, models.WatchResponse{
			Success: true,
			WatchID: id,
			Status:  "observing",
			Session: session,
		})
	}
}

func respondWatchError(c *gin.Context, err error) {
	se := asScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.WatchResponse{
		Success: false,
		Error:   se.ToDetail(),
	})
}
