package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/harvester/models"
	"github.com/use-agent/harvester/store"
)

// PutCredential returns a handler for PUT /api/v1/credential. The vision
// API key is persisted to the store; it is never echoed back.
func PutCredential(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req models.CredentialRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, models.CredentialResponse{
				Success: false,
				Error: &models.ErrorDetail{
					Code:    models.ErrCodeInvalidInput,
					Message: err.Error(),
				},
			})
			return
		}

		if err := st.SetAPIKey(req.APIKey); err != nil {
			se := asScrapeError(err)
			c.JSON(mapErrorToStatus(se), models.CredentialResponse{
				Success: false,
				Error:   se.ToDetail(),
			})
			return
		}

		c.JSON(http.StatusOK, models.CredentialResponse{
			Success: true,
			HasKey:  true,
			KeyHint: st.KeyHint(),
		})
	}
}

// GetCredential returns a handler for GET /api/v1/credential. Only presence
// and a short prefix hint are reported.
func GetCredential(st *store.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		hint := st.KeyHint()
		c.JSON(http.StatusOK, models.CredentialResponse{
			Success: true,
			HasKey:  hint != "",
			KeyHint: hint,
		})
	}
}
