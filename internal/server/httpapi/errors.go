package httpapi

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/civicsync/internal/common"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorConflict), errors.Is(err, common.ErrorIllegalTransition):
		return http.StatusConflict
	case errors.Is(err, common.ErrorPermission):
		return http.StatusForbidden
	case errors.Is(err, common.ErrorUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, common.ErrorValidation):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorBackendUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		s.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
		msg = common.ErrorInternal.Error()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}
