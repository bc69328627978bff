package middleware

import (
	"strings"

	"bantudesa/pkg/access"
	"bantudesa/pkg/errutil"

	"github.com/gin-gonic/gin"
)

// Authenticate attaches the bearer token's actor to the request context.
// When required is false a missing token passes through as anonymous, but a
// malformed one is still rejected.
func Authenticate(tokens *access.Tokens, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		if raw == "" {
			if required {
				_ = c.Error(errutil.Unauthorized("authentication required", nil))
				c.Abort()
				return
			}
			c.Next()
			return
		}

		actor, err := tokens.Parse(raw)
		if err != nil {
			_ = c.Error(errutil.Unauthorized("invalid or expired token", nil))
			c.Abort()
			return
		}

		c.Request = c.Request.WithContext(access.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
