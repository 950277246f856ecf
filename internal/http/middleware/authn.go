// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file provides bearer-token authentication. The middleware verifies the
// Authorization header, resolves it to a user id, and stores the id in the
// Gin context under UserIDKey. Every component downstream of this middleware
// treats that id as a fully verified principal.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/parleyhq/go-messenger-backend/internal/auth"
)

// UserIDKey is the Gin context key holding the authenticated user id.
const UserIDKey = "userID"

// UserID returns the authenticated user id stored by RequireAuth.
// The second return value reports presence.
func UserID(c *gin.Context) (string, bool) {
	v, ok := c.Get(UserIDKey)
	if !ok {
		return "", false
	}
	s, _ := v.(string)
	return s, s != ""
}

// RequireAuth verifies the "Authorization: Bearer <token>" header against
// secret and injects the token's subject as the acting user. Missing or
// invalid tokens abort with a 401 envelope; the cause (absent, malformed,
// expired) is not distinguished.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			unauthorized(c)
			return
		}
		uid, err := auth.Verify(strings.TrimSpace(token), secret)
		if err != nil {
			unauthorized(c)
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       "unauthorized",
		"message":    "missing or invalid credentials",
	})
}
