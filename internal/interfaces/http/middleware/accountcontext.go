package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"classnotex/internal/shared/constants"
	"classnotex/internal/shared/utils"
)

// AccountContext extracts the authenticated account identity from the
// headers set by the API gateway. Requests reaching this service have
// already passed gateway authentication; the gateway is trusted to set
// X-Account-ID and X-Account-Plan.
func AccountContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		accountID := c.GetHeader(constants.HeaderAccountID)
		if accountID == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "missing account identity")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyAccountID, accountID)
		c.Set(constants.ContextKeyPlan, c.GetHeader(constants.HeaderAccountPlan))
		c.Next()
	}
}

// AccountID returns the account ID placed in the context by AccountContext.
func AccountID(c *gin.Context) string {
	return c.GetString(constants.ContextKeyAccountID)
}

// AccountPlan returns the plan name placed in the context by AccountContext.
// Unknown or empty values are normalized downstream.
func AccountPlan(c *gin.Context) string {
	return c.GetString(constants.ContextKeyPlan)
}
