package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/application/services"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// CrisisHandlers contains all crisis history and risk HTTP handlers.
type CrisisHandlers struct {
	history     *services.HistoryService
	statistics  *services.StatisticsService
	patterns    *services.PatternService
	predictions *services.PredictionService
	alerts      *services.AlertService
	logger      *logging.ChanneledLogger
}

// NewCrisisHandlers creates crisis handlers with injected dependencies
func NewCrisisHandlers(
	history *services.HistoryService,
	statistics *services.StatisticsService,
	patterns *services.PatternService,
	predictions *services.PredictionService,
	alerts *services.AlertService,
	logger *logging.ChanneledLogger,
) *CrisisHandlers {
	return &CrisisHandlers{
		history:     history,
		statistics:  statistics,
		patterns:    patterns,
		predictions: predictions,
		alerts:      alerts,
		logger:      logger,
	}
}

// RecordEventRequest is the body of a record request: the upstream
// classifier's finished verdict plus optional context.
type RecordEventRequest struct {
	Severity           string                 `json:"severity" binding:"required"`
	RiskLevel          int                    `json:"riskLevel"`
	Categories         []string               `json:"categories"`
	EscalationRequired bool                   `json:"escalationRequired"`
	ContextualData     *crisis.ContextualData `json:"contextualData,omitempty"`
}

// PostEvent handles POST /api/v1/crisis/events
func (h *CrisisHandlers) PostEvent(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	var req RecordEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Crisis().Error("Record request JSON binding failed", "userId", userID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	severity, err := crisis.ParseSeverity(req.Severity)
	if err != nil {
		respondError(c, err)
		return
	}

	entry, err := h.history.Record(userID, crisis.Analysis{
		Severity:           severity,
		RiskLevel:          req.RiskLevel,
		Categories:         req.Categories,
		EscalationRequired: req.EscalationRequired,
	}, req.ContextualData)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, entry)
}

// PostAnnotation handles POST /api/v1/crisis/events/:entryId/annotations
func (h *CrisisHandlers) PostAnnotation(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}
	entryID := c.Param("entryId")

	var annotation crisis.Annotation
	if err := c.ShouldBindJSON(&annotation); err != nil {
		h.logger.Crisis().Error("Annotation JSON binding failed", "userId", userID, "entryId", entryID, "error", err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	entry, err := h.history.Annotate(userID, entryID, &annotation)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

// GetHistory handles GET /api/v1/crisis/history
func (h *CrisisHandlers) GetHistory(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	filter, err := parseHistoryFilter(c)
	if err != nil {
		respondError(c, err)
		return
	}

	entries, err := h.history.Query(userID, filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
	})
}

// GetStatistics handles GET /api/v1/crisis/statistics
func (h *CrisisHandlers) GetStatistics(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	stats, err := h.statistics.Compute(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

// GetPatterns handles GET /api/v1/crisis/patterns
func (h *CrisisHandlers) GetPatterns(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	patterns, err := h.patterns.CurrentPatterns(userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"patterns": patterns,
		"count":    len(patterns),
	})
}

// GetPrediction handles GET /api/v1/crisis/predictions?timeframe=24h
func (h *CrisisHandlers) GetPrediction(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	timeframe := c.DefaultQuery("timeframe", string(crisis.Timeframe24h))
	prediction, err := h.predictions.Predict(userID, crisis.Timeframe(timeframe))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, prediction)
}

// GetAlerts handles GET /api/v1/crisis/alerts
func (h *CrisisHandlers) GetAlerts(c *gin.Context) {
	userID, ok := middleware.GetUserScope(c)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "user scope not found"})
		return
	}

	alerts := h.alerts.GetActive(userID)
	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

func parseHistoryFilter(c *gin.Context) (services.QueryFilter, error) {
	var filter services.QueryFilter

	if raw := c.Query("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.Join(crisis.ErrValidation, err)
		}
		filter.Start = &start
	}
	if raw := c.Query("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return filter, errors.Join(crisis.ErrValidation, err)
		}
		filter.End = &end
	}
	if raw := c.Query("severity"); raw != "" {
		for _, token := range strings.Split(raw, ",") {
			severity, err := crisis.ParseSeverity(strings.TrimSpace(token))
			if err != nil {
				return filter, err
			}
			filter.Severities = append(filter.Severities, severity)
		}
	}
	if raw := c.Query("includeFalsePositives"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, errors.Join(crisis.ErrValidation, err)
		}
		filter.IncludeFalsePositives = include
	}
	if raw := c.Query("sortBy"); raw != "" {
		filter.SortBy = services.QuerySort(raw)
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return filter, errors.Join(crisis.ErrValidation, errors.New("limit must be a non-negative integer"))
		}
		filter.Limit = limit
	}

	return filter, nil
}

// respondError maps domain errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, crisis.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, crisis.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
