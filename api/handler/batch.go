package handler

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/config"
	"github.com/use-agent/harvester/extract"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/webhook"
)

// batchStore holds all in-flight and completed batch jobs.
var batchStore sync.Map

func init() {
	// Background goroutine to expire batch jobs older than 1 hour.
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for range ticker.C {
			cutoff := time.Now().Add(-1 * time.Hour).Unix()
			batchStore.Range(func(key, value any) bool {
				job := value.(*models.BatchJob)
				if job.CreatedAt < cutoff {
					batchStore.Delete(key)
				}
				return true
			})
		}
	}()
}

// PostBatch returns a handler for POST /api/v1/batch/extract. It validates
// the request, creates a batch job, and launches goroutines to harvest each
// URL concurrently. A webhook_url in the request receives a signed
// batch.completed event once every URL has been processed.
func PostBatch(fetcher *fetch.Fetcher, extractor *extract.Extractor, watchCfg config.WatchConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.BatchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		jobID := "batch-" + randomID()
		job := &models.BatchJob{
			ID:         jobID,
			Status:     "processing",
			Total:      len(req.URLs),
			Results:    make([]*models.ExtractResponse, len(req.URLs)),
			WebhookURL: req.WebhookURL,
			CreatedAt:  time.Now().Unix(),
		}
		batchStore.Store(jobID, job)

		go runBatch(fetcher, extractor, watchCfg, job, req)

		c.JSON(http.StatusOK, models.BatchResponse{
			ID:     jobID,
			Status: "processing",
			Total:  len(req.URLs),
		})
	}
}

// GetBatch returns a handler for GET /api/v1/batch/:id.
func GetBatch() gin.HandlerFunc {
	return func(c *gin.Context) {
		jobID := c.Param("id")
		val, ok := batchStore.Load(jobID)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{
				"error": models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: "batch job not found",
				},
			})
			return
		}

		job := val.(*models.BatchJob)
		c.JSON(http.StatusOK, job.Snapshot())
	}
}

// runBatch processes all URLs in a batch job with concurrency limited by a
// semaphore sized to the browser page pool.
func runBatch(fetcher *fetch.Fetcher, extractor *extract.Extractor, watchCfg config.WatchConfig, job *models.BatchJob, req models.BatchRequest) {
	maxConcurrent := 5
	if b := fetcher.Browser(); b != nil {
		if mp := b.Stats().MaxPages; mp > 0 {
			maxConcurrent = mp
		}
	}
	sem := make(chan struct{}, maxConcurrent)

	var wg sync.WaitGroup
	var failed atomic.Int32

	for i, rawURL := range req.URLs {
		wg.Add(1)
		go func(idx int, targetURL string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			resp := extractOne(fetcher, extractor, watchCfg, targetURL, req.Options)
			job.SetResult(idx, resp)
			if !resp.Success {
				failed.Add(1)
			}
		}(i, rawURL)
	}

	wg.Wait()

	failedCount := int(failed.Load())

	switch {
	case failedCount == job.Total:
		job.Finish("failed")
	case failedCount > 0:
		job.Finish("partial")
	default:
		job.Finish("completed")
	}

	snap := job.Snapshot()
	slog.Info("batch job finished",
		"id", snap.ID,
		"status", snap.Status,
		"completed", snap.Total-failedCount,
		"failed", failedCount,
		"total", snap.Total,
	)

	if job.WebhookURL != "" {
		webhook.DeliverAsync(job.WebhookURL, watchCfg.WebhookSecret,
			webhook.NewEvent(webhook.EventBatchCompleted, snap.ID, models.BatchStatusResponse{
				ID:        snap.ID,
				Status:    snap.Status,
				Completed: snap.Completed,
				Total:     snap.Total,
			}))
	}
}

// extractOne performs a single fetch+extract for one URL using shared batch
// options.
func extractOne(fetcher *fetch.Fetcher, extractor *extract.Extractor, watchCfg config.WatchConfig, targetURL string, opts models.BatchOptions) *models.ExtractResponse {
	totalStart := time.Now()

	req := &models.ExtractRequest{
		URL:           targetURL,
		WaitForImages: opts.WaitForImages,
		Timeout:       opts.Timeout,
		Stealth:       opts.Stealth,
		FetchMode:     opts.FetchMode,
	}
	req.Defaults()

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(req.Timeout)*time.Second)
	defer cancel()

	fetchStart := time.Now()
	result, imagesFound, err := fetchPage(ctx, fetcher, extractor, watchCfg, req)
	fetchMs := time.Since(fetchStart).Milliseconds()

	if err != nil {
		return &models.ExtractResponse{
			Success: false,
			Error:   asScrapeError(err).ToDetail(),
			Timing: models.TimingInfo{
				TotalMs: time.Since(totalStart).Milliseconds(),
				FetchMs: fetchMs,
			},
		}
	}

	extractStart := time.Now()
	session, err := extractor.Extract(result.HTML, targetURL, "")
	extractMs := time.Since(extractStart).Milliseconds()

	if err != nil {
		return &models.ExtractResponse{
			Success: false,
			Error:   asScrapeError(err).ToDetail(),
			Timing: models.TimingInfo{
				TotalMs:   time.Since(totalStart).Milliseconds(),
				FetchMs:   fetchMs,
				ExtractMs: extractMs,
			},
		}
	}

	return &models.ExtractResponse{
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
}

// randomID generates an 8-byte hex job identifier.
func randomID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return hex.EncodeToString([]byte(time.Now().String()))[:16]
	}
	return hex.EncodeToString(b)
}
