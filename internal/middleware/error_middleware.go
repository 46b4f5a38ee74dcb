package middleware

import (
	"pairchat/internal/transport/httpdto"
	"pairchat/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ErrorHandler turns errors attached to the gin context into the standard
// error envelope. Handlers that already wrote a response are left alone.
func ErrorHandler(l *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		if l != nil {
			l.ErrorfCtx(c.Request.Context(), "request error: %s", err.Error())
		}
		c.JSON(httpdto.HTTPStatus(err), httpdto.NewErrorResponse(httpdto.ErrorMessage(err), httpdto.ErrorCode(err)))
	}
}
