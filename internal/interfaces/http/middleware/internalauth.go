package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/shared/constants"
	"classnotex/internal/shared/utils"
)

// InternalAuth guards the worker-facing endpoints with a shared token.
// An empty configured token disables the check, for local development.
func InternalAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		presented := c.GetHeader(constants.HeaderInternalToken)
		if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
			utils.ErrorResponse(c, http.StatusUnauthorized, "invalid internal token")
			c.Abort()
			return
		}
		c.Next()
	}
}
