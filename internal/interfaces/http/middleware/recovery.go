package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"github.com/openlongevity/longmap/internal/infrastructure/monitoring/logging"
)

// Recovery converts handler panics into 500 responses and logs the stack
// through the structured logger instead of gin's default writer.
func Recovery(logger logging.Logger) gin.HandlerFunc {
	logger = logger.Named("http")

	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("handler panic",
					logging.Any("panic", r),
					logging.String("path", c.Request.URL.Path),
					logging.String("stack", string(debug.Stack())))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
					"success": false,
					"error":   gin.H{"code": "COMMON_001", "message": "internal server error"},
				})
			}
		}()
		c.Next()
	}
}
