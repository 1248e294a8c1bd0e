package services

import (
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// minerState tracks the in-flight mining task for one user. done is closed
// when the current run (including any coalesced follow-up) has published.
type minerState struct {
	running bool
	dirty   bool
	done    chan struct{}
}

// PatternMiner runs pattern re-mining as a background task keyed by user,
// with at-most-one-in-flight semantics: a Record arriving while a mine is
// in progress coalesces into a single follow-up run instead of queueing.
type PatternMiner struct {
	patterns *PatternService
	alerts   *AlertService
	cache    *manager.Manager
	logger   *logging.ChanneledLogger

	mu     sync.Mutex
	states map[string]*minerState
	wg     sync.WaitGroup
	closed bool
}

// NewPatternMiner creates a new miner with its dependencies.
func NewPatternMiner(patterns *PatternService, alerts *AlertService, cache *manager.Manager, logger *logging.ChanneledLogger) *PatternMiner {
	return &PatternMiner{
		patterns: patterns,
		alerts:   alerts,
		cache:    cache,
		logger:   logger,
		states:   make(map[string]*minerState),
	}
}

// Schedule requests a re-mine for the user. Returns immediately; the mine
// runs on a background goroutine and publishes via atomic snapshot swap.
func (m *PatternMiner) Schedule(userID string) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		m.logger.Analytics().Warn("Mining request rejected during shutdown", "userId", userID)
		return
	}

	state := m.states[userID]
	if state == nil {
		state = &minerState{}
		m.states[userID] = state
	}
	if state.running {
		state.dirty = true
		m.mu.Unlock()
		return
	}
	state.running = true
	state.done = make(chan struct{})
	m.wg.Add(1)
	m.mu.Unlock()

	go m.run(userID, state)
}

// Wait blocks until the mining task in flight for the user, if any, has
// published its result. Pattern reads call this so a read issued after a
// Record returns never observes the pre-Record snapshot.
func (m *PatternMiner) Wait(userID string) {
	m.mu.Lock()
	state := m.states[userID]
	if state == nil || !state.running {
		m.mu.Unlock()
		return
	}
	done := state.done
	m.mu.Unlock()

	<-done
}

// run mines repeatedly until no further Record arrived mid-mine.
func (m *PatternMiner) run(userID string, state *minerState) {
	defer m.wg.Done()

	for {
		start := time.Now()

		mined, err := m.patterns.MineForUser(userID)
		if err != nil {
			m.logger.Analytics().Error("Background pattern mining failed",
				"error", err.Error(),
				"userId", userID)
		} else {
			var previous []*crisis.Pattern
			if snapshot, ok := m.cache.GetPatternSnapshot(userID); ok {
				previous = snapshot.Patterns
			}
			m.cache.ReplacePatterns(userID, mined)
			m.alerts.EvaluateMinedPatterns(userID, previous, mined)

			m.logger.Analytics().Debug("Background pattern mining published",
				"userId", userID,
				"patterns", len(mined),
				"duration", time.Since(start))
		}

		m.mu.Lock()
		if state.dirty {
			state.dirty = false
			m.mu.Unlock()
			continue
		}
		state.running = false
		close(state.done)
		m.mu.Unlock()
		return
	}
}

// Drain stops accepting new work and waits for in-flight mining tasks, so
// a mined-but-unpublished pattern set is never lost at shutdown.
func (m *PatternMiner) Drain() {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	m.wg.Wait()
	m.logger.Shutdown().Info("Pattern miner drained")
}
