// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/SafeHarborHealth/safeharbor-go/internal/application/container"
	"github.com/SafeHarborHealth/safeharbor-go/internal/presentation/http/handlers"
	"github.com/SafeHarborHealth/safeharbor-go/internal/presentation/http/middleware"
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware())
	r.Use(middleware.PerformanceMiddleware(container.PerfTracker))

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.Logger)
	crisisHandlers := handlers.NewCrisisHandlers(
		container.HistoryService,
		container.StatisticsService,
		container.PatternService,
		container.PredictionService,
		container.AlertService,
		container.Logger,
	)
	streamHandlers := handlers.NewStreamHandlers(container.Broadcaster, container.Logger)
	systemHandlers := handlers.NewSystemHandlers(container.CacheManager, container.PerfTracker, container.Logger)

	// Liveness probe stays unauthenticated.
	r.GET("/health", systemHandlers.GetHealth)

	api := r.Group("/api/v1")
	{
		// Token issuance for platform services
		api.POST("/auth/token", authHandlers.PostToken)

		// Operational endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.AuthMiddleware(container.Logger))
		{
			admin.GET("/logs/levels", systemHandlers.GetLogLevels)
			admin.POST("/logs/levels", systemHandlers.SetLogLevel)
			admin.GET("/performance", systemHandlers.GetPerformance)
		}

		// Crisis endpoints, authenticated and scoped to one user's timeline
		crisis := api.Group("/crisis")
		crisis.Use(middleware.AuthMiddleware(container.Logger))
		crisis.Use(middleware.UserScopeMiddleware(container.Logger))
		{
			crisis.POST("/events", crisisHandlers.PostEvent)
			crisis.POST("/events/:entryId/annotations", crisisHandlers.PostAnnotation)
			crisis.GET("/history", crisisHandlers.GetHistory)
			crisis.GET("/statistics", crisisHandlers.GetStatistics)
			crisis.GET("/patterns", crisisHandlers.GetPatterns)
			crisis.GET("/predictions", crisisHandlers.GetPrediction)
			crisis.GET("/alerts", crisisHandlers.GetAlerts)
			crisis.GET("/alerts/stream", streamHandlers.GetAlertStream)
		}
	}

	return r
}
