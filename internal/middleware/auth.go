package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// TokenKey is the context key for the visitor's bearer token
	TokenKey = "session_token"
	// authScheme is the expected Authorization header prefix
	authScheme = "Bearer "
)

// BearerToken extracts the Authorization bearer token into the Gin context.
// The token is opaque here: it is never validated locally, only forwarded to
// the cemetery backend, which owns authentication. Requests without a token
// pass through; read-only endpoints tolerate anonymity.
func BearerToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if strings.HasPrefix(header, authScheme) {
			token := strings.TrimSpace(header[len(authScheme):])
			if token != "" {
				c.Set(TokenKey, token)
			}
		}

		c.Next()
	}
}

// RequireToken aborts with 401 when no bearer token is present. Applied to
// write routes, which the backend would reject anyway; failing early gives
// the visitor a clearer message.
func RequireToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		if GetToken(c) == "" {
			requestID := GetRequestID(c)

			if log := GetLogger(c); log != nil {
				log.Warn("Missing bearer token on protected route", map[string]interface{}{
					"request_id": requestID,
					"path":       c.Request.URL.Path,
				})
			}

			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":       "UNAUTHORIZED",
					"message":    "Sign in to continue",
					"request_id": requestID,
				},
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetToken retrieves the bearer token from the Gin context.
// Returns an empty string if not found.
func GetToken(c *gin.Context) string {
	if token, exists := c.Get(TokenKey); exists {
		if t, ok := token.(string); ok {
			return t
		}
	}
	return ""
}
