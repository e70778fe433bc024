package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/download"
	"github.com/use-agent/harvester/models"
)

// Download returns a handler for POST /api/v1/download. The caller sends the
// images it selected out of a session plus the session's metadata record;
// the manager writes the files and the metadata sidecar and reports the
// per-image outcomes.
func Download(dm *download.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.DownloadRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.DownloadResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		batch, err := dm.DownloadSelected(c.Request.Context(), req.Selected, req.Metadata)
		if err != nil {
			se := asScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.DownloadResponse{
				Success: false,
				Error:   se.ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.DownloadResponse{
			Success: true,
			Batch:   batch,
		})
	}
}
