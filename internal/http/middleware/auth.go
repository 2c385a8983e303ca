// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file implements bearer-token authentication. Tokens are HS256 JWTs
// minted by the auth service on register/login; the middleware validates the
// signature and expiry, then stores the subject user ID and email in the Gin
// context under "userID" and "userEmail" where the rest of the chain (logger,
// rate limiter, handlers) picks them up.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dale-app/carnaval-backend/internal/services"
)

// Stable error codes emitted before a request reaches the handler layer. The
// handlers package aliases these so the code taxonomy has a single source.
const (
	CodeUnauthorized = "unauthorized"
	CodeRateLimited  = "too_many_requests"
)

// bearerToken extracts the token from an "Authorization: Bearer <jwt>"
// header. Returns "" when the header is absent or malformed.
func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth returns a middleware that requires a valid bearer token. Requests
// without one are rejected with 401 and the localized message clients expect.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := bearerToken(c)
		if tok == "" {
			unauthorized(c)
			return
		}
		claims, err := services.ParseToken(tok, secret)
		if err != nil || claims.UserID == "" {
			unauthorized(c)
			return
		}
		c.Set("userID", claims.UserID)
		c.Set("userEmail", claims.Email)
		c.Next()
	}
}

// OptionalAuth returns a middleware that accepts anonymous requests but sets
// "userID" when a valid bearer token is presented. Invalid tokens are treated
// as anonymous rather than rejected; public endpoints (the connect card, the
// route resolver) serve both audiences.
func OptionalAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tok := bearerToken(c); tok != "" {
			if claims, err := services.ParseToken(tok, secret); err == nil && claims.UserID != "" {
				c.Set("userID", claims.UserID)
				c.Set("userEmail", claims.Email)
			}
		}
		c.Next()
	}
}

func unauthorized(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"request_id": c.Writer.Header().Get(requestIDHeader),
		"code":       CodeUnauthorized,
		"message":    "Usuário não autenticado",
	})
}
