// Package manager provides centralized cache operations with proper user
// isolation by delegating to specialized stores.
package manager

import (
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/stores"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/types"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// Manager provides centralized cache operations. All cached state is
// derived from the event store and re-derivable at any time; eviction
// never loses authoritative data.
type Manager struct {
	patternStore *stores.PatternStore
	alertStore   *stores.AlertStore
	logger       *logging.ChanneledLogger
}

func NewManager(logger *logging.ChanneledLogger) *Manager {
	if logger != nil {
		logger.Cache().Info("Initializing cache manager", "stores", []string{"patterns", "alerts"})
	}

	return &Manager{
		patternStore: stores.NewPatternStore(logger),
		alertStore:   stores.NewAlertStore(logger),
		logger:       logger,
	}
}

// InitializeUser prepares cache structures for a user.
func (m *Manager) InitializeUser(userID string) {
	m.patternStore.InitializeUser(userID)
	m.alertStore.InitializeUser(userID)
}

// GetPatternSnapshot returns the currently published pattern set.
func (m *Manager) GetPatternSnapshot(userID string) (*types.PatternSnapshot, bool) {
	return m.patternStore.GetSnapshot(userID)
}

// ReplacePatterns atomically publishes a freshly mined pattern set.
func (m *Manager) ReplacePatterns(userID string, patterns []*crisis.Pattern) *types.PatternSnapshot {
	return m.patternStore.ReplaceSnapshot(userID, patterns)
}

// AppendAlert adds a new alert to the user's alert log.
func (m *Manager) AppendAlert(userID string, alert *crisis.Alert) {
	m.alertStore.Append(userID, alert)
}

// GetActiveAlerts returns unexpired alerts for the user.
func (m *Manager) GetActiveAlerts(userID string, now time.Time) []*crisis.Alert {
	return m.alertStore.GetActive(userID, now)
}

// Cleanup prunes expired alerts and evicts idle per-user structures.
func (m *Manager) Cleanup(now time.Time, ttl time.Duration) {
	start := time.Now()
	prunedAlerts, evictedAlertUsers := m.alertStore.PruneExpired(now, ttl)
	evictedPatternUsers := m.patternStore.EvictIdle(ttl)

	if m.logger != nil {
		m.logger.Cache().Info("Cache cleanup completed",
			"prunedAlerts", prunedAlerts,
			"evictedAlertUsers", evictedAlertUsers,
			"evictedPatternUsers", evictedPatternUsers,
			"duration", time.Since(start))
	}
}

// Stats reports per-store user counts for observability endpoints.
func (m *Manager) Stats() map[string]int {
	return map[string]int{
		"patternUsers": m.patternStore.UserCount(),
		"alertUsers":   m.alertStore.UserCount(),
	}
}
