// Package stores provides concrete cache store implementations
package stores

import (
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/types"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// PatternStore implements pattern caching operations with user isolation
type PatternStore struct {
	userCaches map[string]*types.UserPatternCache
	mu         sync.RWMutex
	logger     *logging.ChanneledLogger
}

// NewPatternStore creates a new pattern cache store
func NewPatternStore(logger *logging.ChanneledLogger) *PatternStore {
	return &PatternStore{
		userCaches: make(map[string]*types.UserPatternCache),
		logger:     logger,
	}
}

// InitializeUser creates cache structures for a user
func (ps *PatternStore) InitializeUser(userID string) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	if ps.userCaches[userID] == nil {
		ps.userCaches[userID] = &types.UserPatternCache{
			Snapshot:    nil,
			LastUpdated: time.Now().UTC(),
		}
	}
}

// getUserCache safely retrieves a user's pattern cache
func (ps *PatternStore) getUserCache(userID string) (*types.UserPatternCache, bool) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	cache, exists := ps.userCaches[userID]
	return cache, exists
}

// GetSnapshot returns the current pattern snapshot for a user.
func (ps *PatternStore) GetSnapshot(userID string) (*types.PatternSnapshot, bool) {
	cache, exists := ps.getUserCache(userID)
	if !exists {
		return nil, false
	}

	cache.Mu.RLock()
	defer cache.Mu.RUnlock()

	if cache.Snapshot == nil {
		return nil, false
	}
	return cache.Snapshot, true
}

// ReplaceSnapshot atomically swaps in a freshly mined pattern set,
// replacing the prior set wholesale.
func (ps *PatternStore) ReplaceSnapshot(userID string, patterns []*crisis.Pattern) *types.PatternSnapshot {
	cache, exists := ps.getUserCache(userID)
	if !exists {
		ps.InitializeUser(userID)
		cache, _ = ps.getUserCache(userID)
	}

	snapshot := &types.PatternSnapshot{
		Patterns: patterns,
		MinedAt:  time.Now().UTC(),
	}

	cache.Mu.Lock()
	previous := cache.Snapshot
	cache.Snapshot = snapshot
	cache.LastUpdated = time.Now().UTC()
	cache.Mu.Unlock()

	if ps.logger != nil {
		prevCount := 0
		if previous != nil {
			prevCount = len(previous.Patterns)
		}
		ps.logger.Cache().Debug("Pattern snapshot replaced",
			"userId", userID,
			"patterns", len(patterns),
			"previousPatterns", prevCount)
	}
	return snapshot
}

// EvictIdle removes cache structures for users idle longer than ttl.
// Pattern sets are always re-derivable from the event store, so eviction
// never loses authoritative state.
func (ps *PatternStore) EvictIdle(ttl time.Duration) int {
	cutoff := time.Now().UTC().Add(-ttl)

	ps.mu.Lock()
	defer ps.mu.Unlock()

	evicted := 0
	for userID, cache := range ps.userCaches {
		cache.Mu.RLock()
		idle := cache.LastUpdated.Before(cutoff)
		cache.Mu.RUnlock()
		if idle {
			delete(ps.userCaches, userID)
			evicted++
		}
	}
	return evicted
}

// UserCount reports how many users currently hold a cache structure.
func (ps *PatternStore) UserCount() int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.userCaches)
}
