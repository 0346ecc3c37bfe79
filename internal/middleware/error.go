package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	apperrors "github.com/campuswell/counseling-api/pkg/errors"
)

// ErrorResponse is the error envelope returned to clients. Kind is
// machine-readable; UIs branch on it (a slot_taken conflict means
// "refresh availability", not a generic failure).
type ErrorResponse struct {
	Status  string         `json:"status"`
	Kind    apperrors.Kind `json:"kind"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message"`
	TraceID string         `json:"trace_id,omitempty"`
}

func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		traceID := c.GetString(ContextRequestID)

		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", traceID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Msg("request error")
		}

		appErr := apperrors.AsAppError(c.Errors.Last().Err)

		message := appErr.Message
		if appErr.Kind == apperrors.KindInternal {
			// Internal details stay in the logs.
			message = "internal server error"
		}

		c.JSON(appErr.StatusCode(), ErrorResponse{
			Status:  "error",
			Kind:    appErr.Kind,
			Code:    appErr.Code,
			Message: message,
			TraceID: traceID,
		})
	}
}

// AbortWithError records err on the context for the ErrorHandler to
// render; handlers return through it instead of writing status codes
// inline.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// AbortValidation is a shortcut for request binding failures.
func AbortValidation(c *gin.Context, message string, err error) {
	AbortWithError(c, apperrors.NewValidation(message, err))
}
