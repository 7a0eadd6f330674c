package middleware

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"tweestoelen/internal/pkg/response"
)

// AdminToken protects administrative endpoints with a static bearer token.
// An empty token disables those endpoints.
func AdminToken(token string, log *slog.Logger) gin.HandlerFunc {
	if log == nil {
		log = slog.Default()
	}
	return func(c *gin.Context) {
		if token == "" {
			logAuthFailure(log, c, http.StatusForbidden, "token_not_configured")
			response.Error(c, http.StatusForbidden, "ADMIN_DISABLED", "Admin endpoints are disabled")
			c.Abort()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logAuthFailure(log, c, http.StatusUnauthorized, "missing_auth")
			response.Error(c, http.StatusUnauthorized, "AUTH_MISSING", "Authorization header is required")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			logAuthFailure(log, c, http.StatusUnauthorized, "invalid_auth_format")
			response.Error(c, http.StatusUnauthorized, "AUTH_INVALID", "Authorization header must be 'Bearer <token>'")
			c.Abort()
			return
		}

		if subtle.ConstantTimeCompare([]byte(strings.TrimSpace(parts[1])), []byte(token)) != 1 {
			logAuthFailure(log, c, http.StatusForbidden, "invalid_token")
			response.Error(c, http.StatusForbidden, "AUTH_INVALID", "Invalid admin token")
			c.Abort()
			return
		}

		c.Next()
	}
}

func logAuthFailure(log *slog.Logger, c *gin.Context, status int, reason string) {
	log.Warn("admin_auth_failed",
		"status", status,
		"reason", reason,
		"path", c.Request.URL.Path,
		"client_ip", c.ClientIP(),
		"request_id", GetRequestID(c),
	)
}
