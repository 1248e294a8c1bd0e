package services

import (
	"testing"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPatternServiceForTest(t *testing.T, repo *memoryRepository) *PatternService {
	t.Helper()
	return NewPatternService(repo, newTestCache(t), newTestLogger(t))
}

func findPattern(patterns []*crisis.Pattern, typ crisis.PatternType) *crisis.Pattern {
	for _, p := range patterns {
		if p.Type == typ {
			return p
		}
	}
	return nil
}

func TestMineTimeOfDayThreshold(t *testing.T) {
	svc := newPatternServiceForTest(t, newMemoryRepository())
	base := time.Date(2026, 3, 2, 23, 15, 0, 0, time.UTC)

	two := []*crisis.HistoryEntry{
		entryAt("user-1", crisis.SeverityMedium, base),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 1)),
	}
	assert.Nil(t, findPattern(svc.Mine(two), crisis.PatternTimeBased))

	three := append(two, entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 2)))
	pattern := findPattern(svc.Mine(three), crisis.PatternTimeBased)
	require.NotNil(t, pattern)
	assert.Equal(t, 3, pattern.Frequency)
	assert.Equal(t, crisis.PatternSeverityMedium, pattern.Severity)
	assert.Contains(t, pattern.Description, "23:00")
	assert.InDelta(t, 1.0, pattern.Confidence, 0.001)

	five := append(three,
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 3)),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 4)))
	pattern = findPattern(svc.Mine(five), crisis.PatternTimeBased)
	require.NotNil(t, pattern)
	assert.Equal(t, crisis.PatternSeverityHigh, pattern.Severity)
}

func TestMineTriggersFrequencyAndSeverity(t *testing.T) {
	svc := newPatternServiceForTest(t, newMemoryRepository())
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	entries := []*crisis.HistoryEntry{
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base), "work stress"),
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base.Add(30*time.Hour)), "work stress"),
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base.Add(60*time.Hour)), "work stress"),
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base.Add(90*time.Hour)), "work stress"),
		entryAt("user-1", crisis.SeverityLow, base.Add(120*time.Hour)),
	}

	pattern := findPattern(svc.Mine(entries), crisis.PatternTriggerBased)
	require.NotNil(t, pattern)
	assert.Equal(t, 4, pattern.Frequency)
	assert.Equal(t, crisis.PatternSeverityHigh, pattern.Severity)
	assert.Contains(t, pattern.Description, "work stress")

	// A trigger seen once never becomes a pattern.
	single := []*crisis.HistoryEntry{
		withTrigger(entryAt("user-1", crisis.SeverityMedium, base), "argument"),
		entryAt("user-1", crisis.SeverityLow, base.Add(24*time.Hour)),
	}
	assert.Nil(t, findPattern(svc.Mine(single), crisis.PatternTriggerBased))
}

func TestMineEscalationRequiresClimb(t *testing.T) {
	svc := newPatternServiceForTest(t, newMemoryRepository())
	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	climbing := []*crisis.HistoryEntry{
		entryAt("user-1", crisis.SeverityLow, base),
		entryAt("user-1", crisis.SeverityMedium, base.Add(time.Hour)),
		entryAt("user-1", crisis.SeverityHigh, base.Add(2*time.Hour)),
		entryAt("user-1", crisis.SeverityCritical, base.Add(3*time.Hour)),
	}
	pattern := findPattern(svc.Mine(climbing), crisis.PatternEscalation)
	require.NotNil(t, pattern)
	assert.InDelta(t, 0.8, pattern.Confidence, 0.001)
	assert.InDelta(t, 0.9, pattern.PredictiveValue, 0.001)
	assert.Equal(t, crisis.PatternSeverityHigh, pattern.Severity)

	// Two entries are below the minimum history for this pass.
	short := []*crisis.HistoryEntry{
		entryAt("user-1", crisis.SeverityLow, base),
		entryAt("user-1", crisis.SeverityCritical, base.Add(time.Hour)),
	}
	assert.Nil(t, findPattern(svc.Mine(short), crisis.PatternEscalation))

	// Two increases are not enough; the climb must exceed two steps.
	flat := []*crisis.HistoryEntry{
		entryAt("user-1", crisis.SeverityLow, base),
		entryAt("user-1", crisis.SeverityMedium, base.Add(time.Hour)),
		entryAt("user-1", crisis.SeverityMedium, base.Add(2*time.Hour)),
		entryAt("user-1", crisis.SeverityHigh, base.Add(3*time.Hour)),
	}
	assert.Nil(t, findPattern(svc.Mine(flat), crisis.PatternEscalation))
}

func TestMineSeasonalRequiresTwentyEntries(t *testing.T) {
	svc := newPatternServiceForTest(t, newMemoryRepository())
	base := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)

	nineteen := make([]*crisis.HistoryEntry, 0, 19)
	for i := 0; i < 19; i++ {
		nineteen = append(nineteen, entryAt("user-1", crisis.SeverityMedium, base.Add(time.Duration(i)*13*time.Hour)))
	}
	assert.Nil(t, findPattern(svc.Mine(nineteen), crisis.PatternSeasonal))

	// Twenty entries all in June tower over the uniform expectation.
	twenty := append(nineteen, entryAt("user-1", crisis.SeverityMedium, base.Add(19*13*time.Hour)))
	pattern := findPattern(svc.Mine(twenty), crisis.PatternSeasonal)
	require.NotNil(t, pattern)
	assert.Contains(t, pattern.Description, "June")
	assert.InDelta(t, 0.7, pattern.Confidence, 0.001)
	assert.Equal(t, crisis.PatternSeverityMedium, pattern.Severity)
}

func TestMineCyclicalNeedsRegularInterval(t *testing.T) {
	svc := newPatternServiceForTest(t, newMemoryRepository())
	base := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)

	// Nine entries are below the minimum history for this pass.
	nine := make([]*crisis.HistoryEntry, 0, 9)
	for i := 0; i < 9; i++ {
		nine = append(nine, entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, i*7)))
	}
	assert.Nil(t, findPattern(svc.Mine(nine), crisis.PatternCyclical))

	// A steady weekly rhythm across ten entries is cyclical.
	ten := append(nine, entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 9*7)))
	pattern := findPattern(svc.Mine(ten), crisis.PatternCyclical)
	require.NotNil(t, pattern)
	assert.Contains(t, pattern.Description, "7 days")
	assert.InDelta(t, 0.6, pattern.Confidence, 0.001)
	assert.InDelta(t, 0.7, pattern.PredictiveValue, 0.001)

	// Erratic gaps stay unflagged.
	erratic := make([]*crisis.HistoryEntry, 0, 10)
	offsets := []int{0, 1, 15, 16, 40, 41, 70, 71, 99, 100}
	for _, offset := range offsets {
		erratic = append(erratic, entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, offset)))
	}
	assert.Nil(t, findPattern(svc.Mine(erratic), crisis.PatternCyclical))
}

func TestCurrentPatternsMinesOnCacheMiss(t *testing.T) {
	repo := newMemoryRepository()
	cache := newTestCache(t)
	svc := NewPatternService(repo, cache, newTestLogger(t))

	base := time.Date(2026, 3, 2, 23, 15, 0, 0, time.UTC)
	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityMedium, base),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 1)),
		entryAt("user-1", crisis.SeverityMedium, base.AddDate(0, 0, 2)))

	patterns, err := svc.CurrentPatterns("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, patterns)

	// The miss populated the cache; the next read hits the snapshot.
	snapshot, ok := cache.GetPatternSnapshot("user-1")
	require.True(t, ok)
	assert.Equal(t, patterns, snapshot.Patterns)
}
