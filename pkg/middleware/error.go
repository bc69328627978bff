package middleware

import (
	"errors"
	"net/http"

	"bantudesa/pkg/errutil"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Error renders the last handler error as the errutil JSON body.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		err := c.Errors.Last()
		if err == nil || c.Writer.Written() {
			return
		}

		var v errutil.BaseError
		if errors.As(err.Err, &v) {
			if v.Code.HTTPStatus() >= http.StatusInternalServerError {
				zap.L().Error("request failed", zap.String("path", c.FullPath()), zap.Error(v))
			}
			c.JSON(v.Code.HTTPStatus(), v.JSON())
			return
		}

		zap.L().Error("unhandled request error", zap.String("path", c.FullPath()), zap.Error(err.Err))
		c.JSON(http.StatusInternalServerError, errutil.New(errutil.StatusInternal, "internal error").(errutil.BaseError).JSON())
	}
}
