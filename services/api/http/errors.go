package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tbs-timbangan/weighbridge/services/api/models"
	"github.com/tbs-timbangan/weighbridge/services/api/scale"
	"github.com/tbs-timbangan/weighbridge/services/api/weighing"
)

// errorStatus maps a service error to an HTTP status and a stable code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, weighing.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case weighing.IsValidation(err):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, weighing.ErrDuplicateLeg):
		return http.StatusConflict, "duplicate_leg"
	case errors.Is(err, weighing.ErrMissingGrossLeg):
		return http.StatusConflict, "missing_gross_leg"
	case errors.Is(err, models.ErrStaleWrite):
		return http.StatusConflict, "stale_write"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, scale.ErrNotConfigured):
		return http.StatusServiceUnavailable, "scale_not_configured"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status, code := errorStatus(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed",
			zap.String("request_id", c.GetString(requestIDKey)),
			zap.String("code", code),
			zap.Error(err),
		)
	}
	c.JSON(status, gin.H{"error": err.Error(), "code": code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "code": "invalid_request"})
}
