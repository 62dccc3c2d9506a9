// Package httputil provides the request and response helpers of the diagnostics server.
package httputil

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/ribbonapp/ribbon-core/internal/errors"
)

// ErrorResponse is the JSON body of every error response. It mirrors the body the
// HTTP client parses from remote services.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
}

// StatusForKind maps a taxonomy kind to the HTTP status returned to callers.
func StatusForKind(kind apperrors.Kind) int {
	switch kind {
	case apperrors.KindNotFound:
		return http.StatusNotFound
	case apperrors.KindValidation:
		return http.StatusUnprocessableEntity
	case apperrors.KindAuth:
		return http.StatusUnauthorized
	case apperrors.KindPermission:
		return http.StatusForbidden
	case apperrors.KindRateLimit:
		return http.StatusTooManyRequests
	case apperrors.KindTimeout:
		return http.StatusGatewayTimeout
	case apperrors.KindNetwork, apperrors.KindServer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// HandleErrorGin writes err as a JSON error response. Storage and unknown failures
// are reported without their details.
func HandleErrorGin(c *gin.Context, err error, logger *slog.Logger) {
	if err == nil {
		return
	}

	appErr := apperrors.Normalize(err)
	statusCode := StatusForKind(appErr.Kind)

	response := ErrorResponse{
		Error:   string(appErr.Kind),
		Message: apperrors.UserMessage(string(appErr.Kind)),
		Code:    appErr.Code,
	}
	if appErr.Kind == apperrors.KindValidation {
		response.Message = appErr.Message
	}

	if logger != nil {
		logger.Error("request failed",
			slog.Int("status_code", statusCode),
			slog.String("error_code", response.Error),
			slog.Any("error", err),
		)
	}

	c.JSON(statusCode, response)
}
