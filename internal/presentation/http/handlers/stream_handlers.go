package handlers

import (
	"net/http"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/messaging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// StreamHandlers serves the live responder alert stream.
type StreamHandlers struct {
	broadcaster *messaging.AlertBroadcaster
	logger      *logging.ChanneledLogger
}

// NewStreamHandlers creates stream handlers with injected dependencies
func NewStreamHandlers(broadcaster *messaging.AlertBroadcaster, logger *logging.ChanneledLogger) *StreamHandlers {
	return &StreamHandlers{
		broadcaster: broadcaster,
		logger:      logger,
	}
}

// GetAlertStream handles GET /api/v1/crisis/alerts/stream - websocket upgrade
func (h *StreamHandlers) GetAlertStream(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	h.logger.Stream().Debug("Alert stream requested", "userId", userID)
	h.broadcaster.ServeStream(c.Writer, c.Request, userID)
}
