package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// userHeader is set by the upstream auth proxy after token validation.
// Token issuance and validation live outside this service.
const userHeader = "X-User-ID"

const contextUserKey = "authUserID"

// RequireUser rejects requests without an authenticated user identity.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(userHeader)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		c.Set(contextUserKey, userID)
		c.Next()
	}
}

// UserID returns the authenticated user's ID for the current request.
func UserID(c *gin.Context) string {
	return c.GetString(contextUserKey)
}
