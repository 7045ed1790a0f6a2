package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	availabilityapp "staycal/internal/app/handlers/availability"
	"staycal/internal/app/middleware"
	"staycal/internal/app/policies"
	domainavailability "staycal/internal/domain/availability"
	domainlistings "staycal/internal/domain/listings"
	"staycal/internal/domain/shared/rangeerr"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, rangeerr.ErrInvalidRange),
		errors.Is(err, middleware.ErrValidation),
		errors.Is(err, domainavailability.ErrNoEntries),
		errors.Is(err, domainavailability.ErrInvalidPrice),
		errors.Is(err, availabilityapp.ErrPastDate):
		return http.StatusBadRequest
	case errors.Is(err, domainlistings.ErrListingNotFound):
		return http.StatusNotFound
	case errors.Is(err, policies.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, policies.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, middleware.ErrIdempotencyConflict):
		return http.StatusConflict
	case errors.Is(err, availabilityapp.ErrExportDisabled):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes err with its mapped status. Internal errors are logged
// and replaced with a generic message.
func respondError(c *gin.Context, logger *slog.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		if logger != nil {
			logger.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		}
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}
