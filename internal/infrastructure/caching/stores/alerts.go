package stores

import (
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/types"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// AlertStore implements alert caching operations with user isolation.
// Alerts are appended on qualifying events and only filtered by expiry at
// read time; the cleanup worker prunes long-expired rows.
type AlertStore struct {
	userCaches map[string]*types.UserAlertCache
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
}

// NewAlertStore creates a new alert cache store
func NewAlertStore(logger *logging.ChanneledLogger) *AlertStore {
	return &AlertStore{
		userCaches: make(map[string]*types.UserAlertCache),
		logger:     logger,
	}
}

// InitializeUser creates cache structures for a user
func (as *AlertStore) InitializeUser(userID string) {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.userCaches[userID] == nil {
		as.userCaches[userID] = &types.UserAlertCache{
			Alerts:      make([]*crisis.Alert, 0),
			LastUpdated: time.Now().UTC(),
		}
	}
}

func (as *AlertStore) getUserCache(userID string) (*types.UserAlertCache, bool) {
	as.mu.RLock()
	defer as.mu.RUnlock()
	cache, exists := as.userCaches[userID]
	return cache, exists
}

// Append adds a new alert to the user's alert log.
func (as *AlertStore) Append(userID string, alert *crisis.Alert) {
	cache, exists := as.getUserCache(userID)
	if !exists {
		as.InitializeUser(userID)
		cache, _ = as.getUserCache(userID)
	}

	cache.Mu.Lock()
	cache.Alerts = append(cache.Alerts, alert)
	cache.LastUpdated = time.Now().UTC()
	cache.Mu.Unlock()

	if as.logger != nil {
		as.logger.Cache().Debug("Alert appended",
			"userId", userID,
			"alertId", alert.ID,
			"type", alert.Type,
			"severity", alert.Severity)
	}
}

// GetActive returns all alerts whose expiry is unset or still in the future.
func (as *AlertStore) GetActive(userID string, now time.Time) []*crisis.Alert {
	cache, exists := as.getUserCache(userID)
	if !exists {
		return nil
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	active := make([]*crisis.Alert, 0, len(cache.Alerts))
	for _, alert := range cache.Alerts {
		if alert.Active(now) {
			active = append(active, alert)
		}
	}
	return active
}

// PruneExpired drops alerts that expired before the cutoff, ages out
// alerts without an expiry created before the cutoff, and evicts users
// whose alert log is empty and idle longer than ttl. Without the age-out an
// informational alert would sit in the log forever for a long-active user.
func (as *AlertStore) PruneExpired(now time.Time, ttl time.Duration) (pruned, evicted int) {
	cutoff := now.Add(-ttl)

	as.mu.Lock()
	defer as.mu.Unlock()

	for userID, cache := range as.userCaches {
		cache.Mu.Lock()
		kept := cache.Alerts[:0]
		for _, alert := range cache.Alerts {
			expired := alert.ExpiresAt != nil && alert.ExpiresAt.Before(cutoff)
			aged := alert.ExpiresAt == nil && alert.CreatedAt.Before(cutoff)
			if expired || aged {
				pruned++
				continue
			}
			kept = append(kept, alert)
		}
		cache.Alerts = kept
		idle := len(cache.Alerts) == 0 && cache.LastUpdated.Before(cutoff)
		cache.Mu.Unlock()

		if idle {
			delete(as.userCaches, userID)
			evicted++
		}
	}
	return pruned, evicted
}

// UserCount reports how many users currently hold a cache structure.
func (as *AlertStore) UserCount() int {
	as.mu.RLock()
	defer as.mu.RUnlock()
	return len(as.userCaches)
}
