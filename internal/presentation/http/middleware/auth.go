package middleware

import (
	"net/http"
	"strings"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/security"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/gin-gonic/gin"
)

const (
	authClaimsKey = "authClaims"
	userScopeKey  = "userScope"
)

// AuthMiddleware validates the bearer token on every request and stores the
// parsed claims in the request context.
func AuthMiddleware(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
			c.Abort()
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		claims, err := security.ValidateServiceToken(token, config.JWTSecret)
		if err != nil {
			logger.Auth().Warn("Rejected request with invalid token",
				"path", c.Request.URL.Path,
				"error", err.Error())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		c.Set(authClaimsKey, claims)
		c.Next()
	}
}

// UserScopeMiddleware resolves which user's timeline a request operates on.
// The scope comes from the X-User-ID header (or a userId query parameter as
// a fallback) and every handler under it reads only that user's state.
func UserScopeMiddleware(logger *logging.ChanneledLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			userID = c.Query("userId")
		}
		if userID == "" {
			logger.Auth().Warn("Request without user scope", "path", c.Request.URL.Path)
			c.JSON(http.StatusBadRequest, gin.H{"error": "X-User-ID header is required"})
			c.Abort()
			return
		}

		c.Set(userScopeKey, userID)
		c.Next()
	}
}

// GetAuthClaims retrieves the validated token claims from the request context.
func GetAuthClaims(c *gin.Context) (*security.ServiceClaims, bool) {
	value, exists := c.Get(authClaimsKey)
	if !exists {
		return nil, false
	}
	claims, ok := value.(*security.ServiceClaims)
	return claims, ok
}

// GetUserScope retrieves the scoped user id from the request context.
func GetUserScope(c *gin.Context) (string, bool) {
	value, exists := c.Get(userScopeKey)
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok && userID != ""
}
