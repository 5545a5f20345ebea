// Package middleware holds the gin middleware of the HTTP interface.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CallerHeader carries the authenticated caller identity, set by the API
// gateway in front of this service.
const CallerHeader = "X-Caller-ID"

const callerKey = "caller_id"

// RequireCaller rejects requests without a caller identity.  Every KPI view
// and mutation is scoped to the caller, so an anonymous request has nothing
// it could legally touch.
func RequireCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		caller := c.GetHeader(CallerHeader)
		if caller == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "COMMON_003",
				"message": "missing caller identity",
			})
			return
		}
		c.Set(callerKey, caller)
		c.Next()
	}
}

// CallerID returns the caller identity set by RequireCaller.
func CallerID(c *gin.Context) string {
	return c.GetString(callerKey)
}
