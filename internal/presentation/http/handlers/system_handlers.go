package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// SystemHandlers serves liveness and operational endpoints.
type SystemHandlers struct {
	cache     *manager.Manager
	perf      *performance.Tracker
	logger    *logging.ChanneledLogger
	startedAt time.Time
}

// NewSystemHandlers creates system handlers with injected dependencies
func NewSystemHandlers(cache *manager.Manager, perf *performance.Tracker, logger *logging.ChanneledLogger) *SystemHandlers {
	return &SystemHandlers{
		cache:     cache,
		perf:      perf,
		logger:    logger,
		startedAt: time.Now().UTC(),
	}
}

// GetHealth handles GET /health
func (h *SystemHandlers) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"uptime": time.Since(h.startedAt).String(),
		"cache":  h.cache.Stats(),
	})
}

// GetPerformance handles GET /api/v1/admin/performance
func (h *SystemHandlers) GetPerformance(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"uptime":     h.perf.Uptime().String(),
		"operations": h.perf.Summary(),
	})
}

// GetLogLevels handles GET /api/v1/admin/logs/levels
func (h *SystemHandlers) GetLogLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"levels": h.logger.GetChannelLevels()})
}

// SetLogLevel handles POST /api/v1/admin/logs/levels
func (h *SystemHandlers) SetLogLevel(c *gin.Context) {
	var req struct {
		Channel string `json:"channel" binding:"required"`
		Level   string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	var level slog.Level
	switch strings.ToUpper(req.Level) {
	case "DEBUG":
		level = slog.LevelDebug
	case "INFO":
		level = slog.LevelInfo
	case "WARN":
		level = slog.LevelWarn
	case "ERROR":
		level = slog.LevelError
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown level " + req.Level})
		return
	}

	if err := h.logger.SetChannelLevel(logging.Channel(req.Channel), level); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.logger.System().Info("Log level changed", "channel", req.Channel, "level", req.Level)
	c.JSON(http.StatusOK, gin.H{"success": true})
}
