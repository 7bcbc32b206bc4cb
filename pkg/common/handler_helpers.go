package common

import (
	"net/http"

	"github.com/JesusSantiago31/API-GPS/pkg/logger"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HandleServiceError handles service errors with consistent patterns.
// Returns true if an error was handled (and response was sent), false otherwise.
//
// Usage:
//
//	result, err := h.planner.PlanRoute(ctx, req)
//	if HandleServiceError(c, err, "failed to calculate route") {
//	    return
//	}
func HandleServiceError(c *gin.Context, err error, fallbackMessage string) bool {
	return HandleServiceErrorWithCode(c, err, http.StatusInternalServerError, fallbackMessage)
}

// HandleServiceErrorWithCode handles service errors with a custom fallback status code.
func HandleServiceErrorWithCode(c *gin.Context, err error, fallbackCode int, fallbackMessage string) bool {
	if err == nil {
		return false
	}

	if appErr, ok := AsAppError(err); ok {
		if appErr.Code >= http.StatusInternalServerError {
			logger.ErrorContext(c.Request.Context(), fallbackMessage, zap.Error(err))
			_ = c.Error(err)
		}
		AppErrorResponse(c, appErr)
		return true
	}

	logger.ErrorContext(c.Request.Context(), fallbackMessage,
		zap.Error(err),
	)
	_ = c.Error(err)

	ErrorResponse(c, fallbackCode, fallbackMessage)
	return true
}

// BindJSON binds JSON request body and sends error response on failure.
// Returns true on success, false on failure (response already sent).
//
// Usage:
//
//	var req CalculateRouteRequest
//	if !BindJSON(c, &req) {
//	    return
//	}
func BindJSON(c *gin.Context, obj interface{}) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
