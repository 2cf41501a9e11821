package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/BroadDigixDeveloper/Katana2Dcl-Dashboard/internal/pkg"
)

// Recovery returns a gin middleware that recovers from panics, logs the panic
// value with a stack trace using slog, and aborts with the JSON error envelope:
//
//	{"status": "error", "message": "internal server error", "type": "Panic"}
//
// It replaces gin.Recovery() so that panics are logged through the
// application logger and clients never receive an empty body.
func Recovery(logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.ErrorContext(c.Request.Context(), "panic recovered",
					slog.Any("panic", err),
					slog.String("method", c.Request.Method),
					slog.String("path", c.Request.URL.Path),
					slog.String("request_id", GetRequestID(c)),
					slog.String("stack", string(debug.Stack())),
				)

				c.AbortWithStatusJSON(http.StatusInternalServerError, pkg.ErrorResponse{
					Status:  pkg.StatusError,
					Message: "internal server error",
					Type:    "Panic",
				})
			}
		}()
		c.Next()
	}
}
