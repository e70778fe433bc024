package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/fetch"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/store"
	"github.com/use-agent/harvester/vision"
)

// Analyze returns a handler for POST /api/v1/analyze.
//
// The request carries either image_data (base64 or data URI) or a page URL;
// a URL is screenshotted with the headless browser first. The vision
// credential comes from the store; a missing key fails before any capture
// or API spend happens.
func Analyze(vc *vision.Client, st *store.Store, browser *fetch.Browser) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.AnalyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondAnalyzeError(c, models.NewScrapeError(models.ErrCodeInvalidInput, err.Error(), err), "")
			return
		}

		if (req.ImageData == "") == (req.URL == "") {
			respondAnalyzeError(c, models.NewScrapeError(models.ErrCodeInvalidInput,
				"exactly one of image_data or url must be provided", nil), "")
			return
		}

		apiKey := st.APIKey()
		if apiKey == "" {
			respondAnalyzeError(c, models.NewScrapeError(models.ErrCodeCredentialMissing,
				"no vision API key configured: set one via PUT /api/v1/credential", nil), "")
			return
		}

		imageData := req.ImageData
		var screenshot string
		if req.URL != "" {
			if browser == nil {
				respondAnalyzeError(c, models.NewScrapeError(models.ErrCodeCapture,
					"screenshot capture requires the browser engine, which is disabled", nil), "")
				return
			}
			shot, err := browser.CaptureScreenshot(c.Request.Context(), req.URL, false)
			if err != nil {
				respondAnalyzeError(c, err, "")
				return
			}
			imageData = shot
			screenshot = shot
		}

		result, err := vc.Analyze(c.Request.Context(), imageData, req.Context, apiKey)
		if err != nil {
			respondAnalyzeError(c, err, screenshot)
			return
		}

		c.JSON(http.StatusOK, models.AnalyzeResponse{
			Success:    true,
			Analysis:   result,
			Screenshot: screenshot,
		})
	}
}

func respondAnalyzeError(c *gin.Context, err error, screenshot string) {
	se := asScrapeError(err)
	c.JSON(mapErrorToStatus(se), models.AnalyzeResponse{
		Success:    false,
		Screenshot: screenshot,
		Error:      se.ToDetail(),
	})
}
