// Package startup prepares the application server
package startup

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/application/container"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/cleanup"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/messaging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/notifications"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	persistence "github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/persistence/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/persistence/database"
	"github.com/SafeHarborHealth/safeharbor-go/internal/presentation/http/server"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/gin-gonic/gin"
)

// Initialize performs the complete startup sequence
func Initialize() error {
	setupLogging()

	start := time.Now().UTC()

	ctx, cancelBackgroundTasks := context.WithCancel(context.Background())
	defer cancelBackgroundTasks()

	log.Println("SafeHarbor crisis history & risk prediction engine")

	// Step 1: Initialize channeled logging
	logger, err := logging.NewChanneledLogger(logging.DefaultLoggerConfig())
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.Startup().Info("Channeled logging initialized")

	// Step 2: Connect persistence
	logger.Startup().Info("Connecting database...", "driver", config.DBDriver)
	db, err := database.Connect(logger)
	if err != nil {
		return fmt.Errorf("failed to connect database: %w", err)
	}
	if err := db.EnsureSchema(logger); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	logger.Startup().Info("Database ready", "driver", db.Driver)

	// Step 3: Initialize cache system
	logger.Startup().Info("Initializing cache system...")
	cacheManager := manager.NewManager(logger)

	// Step 4: Initialize collaborators
	broadcaster := messaging.NewAlertBroadcaster(logger)

	pager, err := notifications.NewResendPager()
	if err != nil {
		// The engine still records and alerts without a pager; escalations
		// surface as internal alerts only.
		logger.Startup().Error("Pager unavailable, escalation delivery disabled", "error", err.Error())
		pager = notifications.NewLogPager(logger)
	}

	// Step 5: Create dependency injection container
	logger.Startup().Info("Initializing dependency injection container...")
	repo := persistence.NewSQLEntryRepository(db, logger)
	appContainer := container.NewContainer(repo, cacheManager, broadcaster, pager, logger)
	logger.Startup().Info("Dependency injection container created with singleton services")

	// Step 6: Start background cleanup worker
	logger.Startup().Info("Starting background cleanup worker...")
	cleanupWorker := cleanup.NewWorker(cacheManager, logger)
	go cleanupWorker.Start(ctx)

	// Step 7: Start HTTP server
	logger.Startup().Info("Starting HTTP server...")
	port := config.Port
	httpServer := server.New(port, appContainer)

	gracefulShutdown := make(chan os.Signal, 1)
	signal.Notify(gracefulShutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.System().Info("Starting HTTP server", "address", ":"+port)
		if err := httpServer.Start(); err != nil {
			logger.System().Error("HTTP server failed", "error", err.Error())
		}
	}()

	logger.Startup().Info("Application startup complete",
		"totalDuration", time.Since(start),
		"port", port)

	// Wait for shutdown signal
	<-gracefulShutdown
	logger.Shutdown().Info("Shutdown signal received, starting graceful shutdown...")

	shutdownStart := time.Now()

	// Cancel background tasks
	cancelBackgroundTasks()

	// Stop server
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Shutdown().Info("Stopping HTTP server...")
	if err := httpServer.Stop(shutdownCtx); err != nil {
		logger.Shutdown().Error("Error during server shutdown", "error", err.Error())
	} else {
		logger.Shutdown().Info("HTTP server stopped successfully")
	}

	// Drain in-flight pattern mining so a mined-but-unpublished set is not lost
	logger.Shutdown().Info("Draining background miners...")
	appContainer.Shutdown()

	logger.Shutdown().Info("Closing database...")
	if err := db.Close(); err != nil {
		logger.Shutdown().Error("Error closing database", "error", err.Error())
	}

	logger.Shutdown().Info("Application shutdown complete",
		"totalUptime", time.Since(start),
		"shutdownDuration", time.Since(shutdownStart))

	return nil
}

// setupLogging configures application logging
func setupLogging() {
	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	log.SetFlags(log.LstdFlags | log.Lshortfile)
}
