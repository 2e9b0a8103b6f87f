package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/singroom-server/internal/identity"
	"github.com/vovakirdan/singroom-server/internal/session"
)

const (
	// ContextKeyIdentity is the context key for the resolved identity.
	ContextKeyIdentity = "identity"
	// ContextKeyToken is the context key for the raw session token.
	ContextKeyToken = "token"
)

// AuthMiddleware resolves the bearer token through the session registry.
// Superseded and revoked tokens are rejected even if their signature is valid.
func AuthMiddleware(sessions *session.Registry, logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.Debug().Msg("missing authorization header")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "missing authorization header"})
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			logger.Debug().Msg("invalid authorization header format")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid authorization header format"})
			return
		}

		token := parts[1]
		ident, err := sessions.Resolve(token)
		if err != nil {
			logger.Debug().Err(err).Msg("invalid session")
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "invalid session"})
			return
		}

		c.Set(ContextKeyIdentity, ident)
		c.Set(ContextKeyToken, token)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) (identity.Identity, string, bool) {
	v, ok := c.Get(ContextKeyIdentity)
	if !ok {
		return identity.Identity{}, "", false
	}
	ident, ok := v.(identity.Identity)
	if !ok {
		return identity.Identity{}, "", false
	}
	return ident, c.GetString(ContextKeyToken), true
}

// LoggerMiddleware creates a middleware that logs HTTP requests.
func LoggerMiddleware(logger *zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("http request")
	}
}
