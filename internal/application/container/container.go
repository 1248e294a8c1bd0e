// Package container provides dependency injection for all singleton services
package container

import (
	"github.com/SafeHarborHealth/safeharbor-go/internal/application/services"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/repositories"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/messaging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/notifications"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/performance"
)

// Container holds all singleton services and infrastructure dependencies
type Container struct {
	// Crisis Services (stateless singletons over the shared caches)
	HistoryService    *services.HistoryService
	StatisticsService *services.StatisticsService
	PatternService    *services.PatternService
	PredictionService *services.PredictionService
	AlertService      *services.AlertService
	EscalationService *services.EscalationService
	PatternMiner      *services.PatternMiner

	// Infrastructure Dependencies
	EntryRepository repositories.EntryRepository
	CacheManager    *manager.Manager
	Broadcaster     *messaging.AlertBroadcaster
	Pager           notifications.Pager
	Logger          *logging.ChanneledLogger
	PerfTracker     *performance.Tracker
}

// NewContainer creates and wires all singleton services
func NewContainer(
	repo repositories.EntryRepository,
	cacheManager *manager.Manager,
	broadcaster *messaging.AlertBroadcaster,
	pager notifications.Pager,
	logger *logging.ChanneledLogger,
) *Container {
	perfTracker := performance.NewTracker(logger)
	alertService := services.NewAlertService(cacheManager, broadcaster, logger)
	escalationService := services.NewEscalationService(pager, alertService, logger)
	patternService := services.NewPatternService(repo, cacheManager, logger)
	patternMiner := services.NewPatternMiner(patternService, alertService, cacheManager, logger)
	patternService.AttachMiner(patternMiner)
	historyService := services.NewHistoryService(repo, alertService, escalationService, patternMiner, logger)

	return &Container{
		HistoryService:    historyService,
		StatisticsService: services.NewStatisticsService(repo, patternService, logger),
		PatternService:    patternService,
		PredictionService: services.NewPredictionService(repo, patternService, logger),
		AlertService:      alertService,
		EscalationService: escalationService,
		PatternMiner:      patternMiner,

		EntryRepository: repo,
		CacheManager:    cacheManager,
		Broadcaster:     broadcaster,
		Pager:           pager,
		Logger:          logger,
		PerfTracker:     perfTracker,
	}
}

// Shutdown drains background work owned by the container. It must run
// before process exit so a mined-but-unpublished pattern set is not lost.
func (c *Container) Shutdown() {
	c.PatternMiner.Drain()
}
