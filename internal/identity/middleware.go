package identity

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const cookieName = "access_token"

type MiddlewareConfig struct {
	// DisableAuth injects LocalUser for every request.
	DisableAuth bool
	// Optional lets requests without a token through anonymously. A token
	// that is present but invalid is still rejected.
	Optional bool
	Logger   *zap.Logger
}

// Middleware enforces bearer token auth and injects claims into the request context.
func Middleware(verifier *Verifier, cfg MiddlewareConfig) gin.HandlerFunc {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		if cfg.DisableAuth {
			setClaims(c, &Claims{Username: LocalUser})
			c.Next()
			return
		}

		raw, found := rawToken(c)
		if !found {
			if cfg.Optional {
				c.Next()
				return
			}
			logger.Info("auth failure: missing token", zap.String("path", c.Request.URL.Path))
			respondUnauthorized(c, "missing authorization header")
			return
		}

		token, ok := extractBearerToken(raw)
		if !ok {
			logger.Info("auth failure: malformed token", zap.String("path", c.Request.URL.Path))
			respondUnauthorized(c, "invalid authorization header")
			return
		}

		if verifier == nil {
			respondUnauthorized(c, "auth verifier not configured")
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			logger.Info("auth failure: token invalid", zap.String("path", c.Request.URL.Path), zap.Error(err))
			respondUnauthorized(c, "Could not validate credentials")
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// rawToken prefers the Authorization header and falls back to the cookie.
func rawToken(c *gin.Context) (string, bool) {
	if header := c.GetHeader("Authorization"); header != "" {
		return header, true
	}
	if cookie, err := c.Cookie(cookieName); err == nil && cookie != "" {
		return cookie, true
	}
	return "", false
}

func setClaims(c *gin.Context, claims *Claims) {
	c.Request = c.Request.WithContext(WithClaims(c.Request.Context(), claims))
}

func extractBearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 {
		return "", false
	}
	if !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", false
	}
	return token, true
}

func respondUnauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"detail": message,
	})
}
