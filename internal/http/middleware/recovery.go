package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/platform/logger"
)

// Recovery turns a handler panic into the regular 500 error response.
func Recovery(log *logger.Logger, resp response.Writer) gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(nil, func(c *gin.Context, recovered any) {
		log.Error("panic in handler", "route", c.FullPath(), "panic", fmt.Sprint(recovered))
		resp.Error(c, fmt.Errorf("%w: %v", response.ErrPanic, recovered))
	})
}
