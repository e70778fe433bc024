package handler

import (
	"net/http"

	"github.com/use-agent/harvester/models"
)

// asScrapeError coerces any error into a *models.ScrapeError so handlers can
// always emit a structured ErrorDetail.
func asScrapeError(err error) *models.ScrapeError {
	if se, ok := err.(*models.ScrapeError); ok {
		return se
	}
	return models.NewScrapeError(models.ErrCodeInternal, err.Error(), err)
}

// mapErrorToStatus translates error codes to HTTP status codes.
func mapErrorToStatus(e *models.ScrapeError) int {
	switch e.Code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout
	case models.ErrCodeNavigation, models.ErrCodeBrowserCrash, models.ErrCodeCapture:
		return http.StatusBadGateway
	case models.ErrCodeInvalidInput, models.ErrCodeNoImagesSelected:
		return http.StatusBadRequest
	case models.ErrCodeWatchNotFound:
		return http.StatusNotFound
	case models.ErrCodeRateLimited, models.ErrCodeVisionRateLimited:
		return http.StatusTooManyRequests
	case models.ErrCodeUnauthorized, models.ErrCodeVisionAuthFailure:
		return http.StatusUnauthorized
	case models.ErrCodeCredentialMissing:
		return http.StatusPreconditionFailed
	case models.ErrCodeVisionFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
