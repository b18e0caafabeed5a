// Package middleware provides HTTP middleware for token authentication,
// request logging, rate limiting and response hardening.
package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pandeptwidyaop/release-radar/internal/services"
)

const (
	// TokenHeader carries the API token.
	TokenHeader = "X-Radar-Token" // #nosec G101 - header name, not a credential
	// RequesterContextKey stores who triggered a mutating request.
	RequesterContextKey = "requester"
)

// TokenRequired rejects requests that do not present the API token, either in
// TokenHeader or as a bearer token. It passes everything through when auth is
// disabled.
func TokenRequired(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !authService.Enabled() {
			c.Set(RequesterContextKey, "anonymous@"+c.ClientIP())
			c.Next()
			return
		}

		token := c.GetHeader(TokenHeader)
		if token == "" {
			if bearer, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer "); ok {
				token = strings.TrimSpace(bearer)
			}
		}

		if err := authService.CheckToken(token); err != nil {
			msg := "invalid token"
			if errors.Is(err, services.ErrEmptyToken) {
				msg = "unauthorized"
			}
			c.JSON(http.StatusUnauthorized, gin.H{"error": msg})
			c.Abort()
			return
		}

		c.Set(RequesterContextKey, "token@"+c.ClientIP())
		c.Next()
	}
}

// Requester returns the requester recorded by TokenRequired.
func Requester(c *gin.Context) string {
	if v := c.GetString(RequesterContextKey); v != "" {
		return v
	}
	return "api@" + c.ClientIP()
}
