package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/model-registry/pkg/api"
)

// Auth checks for a valid Bearer token in the Authorization header. An empty key list
// disables the check.
func Auth(keys []string) gin.HandlerFunc {
	allowed := make([][]byte, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			allowed = append(allowed, []byte(k))
		}
	}

	return func(c *gin.Context) {
		if len(allowed) == 0 {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			_ = c.Error(api.UnauthorizedError("Missing Authorization header"))
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			_ = c.Error(api.UnauthorizedError("Invalid Authorization header format"))
			c.Abort()
			return
		}

		token := []byte(parts[1])
		for _, k := range allowed {
			if subtle.ConstantTimeCompare(token, k) == 1 {
				c.Next()
				return
			}
		}

		_ = c.Error(api.UnauthorizedError("Invalid API Key"))
		c.Abort()
	}
}
