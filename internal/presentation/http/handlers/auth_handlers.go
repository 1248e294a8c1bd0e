// Package handlers provides HTTP request handlers for the presentation layer.
package handlers

import (
	"net/http"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/security"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandlers contains the token issuance handlers for platform services.
type AuthHandlers struct {
	logger *logging.ChanneledLogger
}

// NewAuthHandlers creates auth handlers with injected dependencies
func NewAuthHandlers(logger *logging.ChanneledLogger) *AuthHandlers {
	return &AuthHandlers{logger: logger}
}

// TokenRequest is the body of a token issuance request.
type TokenRequest struct {
	ClientID string `json:"clientId" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PostToken handles POST /api/v1/auth/token - issues a service bearer token
func (h *AuthHandlers) PostToken(c *gin.Context) {
	start := time.Now()

	var req TokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Auth().Error("Token request JSON binding failed", "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	if config.ServiceuserPassHash == "" {
		h.logger.Auth().Error("Token issuance is not configured; SERVICE_PASSWORD_HASH is empty")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token issuance not configured"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(config.ServiceuserPassHash), []byte(req.Password)); err != nil {
		h.logger.Auth().Warn("Token issuance refused",
			"clientId", req.ClientID,
			"duration", time.Since(start))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	token, claims, err := security.GenerateServiceToken(req.ClientID, "service", config.JWTSecret, config.TokenTTL)
	if err != nil {
		h.logger.Auth().Error("Token signing failed", "clientId", req.ClientID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Token generation failed"})
		return
	}

	h.logger.Auth().Info("Service token issued",
		"clientId", req.ClientID,
		"expiresAt", claims.ExpiresAt,
		"duration", time.Since(start))

	c.JSON(http.StatusOK, gin.H{
		"token":     token,
		"expiresAt": claims.ExpiresAt,
	})
}
