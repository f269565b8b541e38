package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/fenwick-ai/ragengine/internal/config"
	"github.com/fenwick-ai/ragengine/internal/types"
)

// noAuthPaths lists routes reachable without a bearer token: the liveness
// probe must answer before any auth dependency is even up. The dependency
// report at /api/v1/system/health is not listed and needs a token.
var noAuthPaths = map[string][]string{
	"/health":      {"GET"},
	"/api/v1/health": {"GET"},
}

func isNoAuthPath(path, method string) bool {
	for p, methods := range noAuthPaths {
		if p != path {
			continue
		}
		for _, m := range methods {
			if m == method {
				return true
			}
		}
	}
	return false
}

// Auth verifies a bearer JWT on every request and carries its "sub" claim as
// the authenticated user id. Authentication itself is an external
// collaborator, out of this engine's scope; this middleware only satisfies
// the ambient contract that every SearchInput/ConversationMessage carries a
// trusted UserID by the time a handler runs. HS256, shared-secret signing
// keeps the rest of the service stateless without a user-management
// subsystem of its own.
func Auth(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}
		if isNoAuthPath(c.Request.URL.Path, c.Request.Method) {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		tokenStr, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenStr == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			c.Abort()
			return
		}

		secret := jwtSecret(cfg)
		token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrTokenSignatureInvalid
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid bearer token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token claims"})
			c.Abort()
			return
		}
		userID, _ := claims["sub"].(string)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "token missing subject"})
			c.Abort()
			return
		}

		c.Set(types.UserIDContextKey.String(), userID)
		c.Request = c.Request.WithContext(
			context.WithValue(c.Request.Context(), types.UserIDContextKey, userID),
		)
		c.Next()
	}
}

func jwtSecret(cfg *config.Config) []byte {
	if cfg != nil && cfg.Server != nil && cfg.Server.JWTSecret != "" {
		return []byte(cfg.Server.JWTSecret)
	}
	return []byte("dev-insecure-secret")
}

// UserIDFromContext reads the authenticated user id a prior Auth() call
// stored on the request context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(types.UserIDContextKey).(string)
	return v, ok
}
