package services

import (
	"testing"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchedulePublishesSnapshot(t *testing.T) {
	logger := newTestLogger(t)
	repo := newMemoryRepository()
	cache := newTestCache(t)
	alerts := NewAlertService(cache, &recordingBroadcaster{}, logger)
	patterns := NewPatternService(repo, cache, logger)
	miner := NewPatternMiner(patterns, alerts, cache, logger)

	base := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityMedium, base),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 1)),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 2)))

	miner.Schedule("user-1")
	miner.Drain()

	snapshot, ok := cache.GetPatternSnapshot("user-1")
	require.True(t, ok)
	require.NotNil(t, findPattern(snapshot.Patterns, crisis.PatternTimeBased))
}

func TestScheduleAfterDrainIsRejected(t *testing.T) {
	logger := newTestLogger(t)
	repo := newMemoryRepository()
	cache := newTestCache(t)
	alerts := NewAlertService(cache, &recordingBroadcaster{}, logger)
	patterns := NewPatternService(repo, cache, logger)
	miner := NewPatternMiner(patterns, alerts, cache, logger)

	miner.Drain()
	miner.Schedule("user-1")

	_, ok := cache.GetPatternSnapshot("user-1")
	assert.False(t, ok)
}

func TestScheduleCoalescesWhileRunning(t *testing.T) {
	logger := newTestLogger(t)
	repo := newMemoryRepository()
	cache := newTestCache(t)
	alerts := NewAlertService(cache, &recordingBroadcaster{}, logger)
	patterns := NewPatternService(repo, cache, logger)
	miner := NewPatternMiner(patterns, alerts, cache, logger)

	base := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityMedium, base),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 1)),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 2)))

	// A burst of schedules must publish exactly one coherent final set,
	// not queue unboundedly.
	for i := 0; i < 25; i++ {
		miner.Schedule("user-1")
	}
	miner.Drain()

	snapshot, ok := cache.GetPatternSnapshot("user-1")
	require.True(t, ok)
	assert.NotEmpty(t, snapshot.Patterns)
}

func TestReadWaitsForInFlightMine(t *testing.T) {
	logger := newTestLogger(t)
	repo := newMemoryRepository()
	cache := newTestCache(t)
	alerts := NewAlertService(cache, &recordingBroadcaster{}, logger)
	patterns := NewPatternService(repo, cache, logger)
	miner := NewPatternMiner(patterns, alerts, cache, logger)
	patterns.AttachMiner(miner)
	t.Cleanup(miner.Drain)

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	seedEntries(t, repo,
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base), "work"),
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 1)), "work"))

	miner.Schedule("user-1")
	before, err := patterns.CurrentPatterns("user-1")
	require.NoError(t, err)
	trigger := findPattern(before, crisis.PatternTriggerBased)
	require.NotNil(t, trigger)
	require.Equal(t, 2, trigger.Frequency)

	// A third trigger entry arrives and its re-mine is held in flight; the
	// read must block on the publication instead of serving the stale set.
	seedEntries(t, repo, withTrigger(entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 2)), "work"))
	gate := make(chan struct{})
	repo.setFindGate(gate)
	miner.Schedule("user-1")

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(gate)
	}()

	after, err := patterns.CurrentPatterns("user-1")
	require.NoError(t, err)
	updated := findPattern(after, crisis.PatternTriggerBased)
	require.NotNil(t, updated)
	assert.Equal(t, 3, updated.Frequency)
}

func TestMinedHighSeverityPatternRaisesAlert(t *testing.T) {
	logger := newTestLogger(t)
	repo := newMemoryRepository()
	cache := newTestCache(t)
	alerts := NewAlertService(cache, &recordingBroadcaster{}, logger)
	patterns := NewPatternService(repo, cache, logger)
	miner := NewPatternMiner(patterns, alerts, cache, logger)

	// Five entries in one hour bucket mine a high-severity pattern.
	base := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedEntries(t, repo, entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, i)))
	}

	miner.Schedule("user-1")
	miner.Drain()

	active := alerts.GetActive("user-1")
	require.Len(t, active, 1)
	assert.Equal(t, crisis.AlertPatternDetected, active[0].Type)
}
