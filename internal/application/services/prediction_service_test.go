package services

import (
	"testing"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPredictionFixture(t *testing.T, repo *memoryRepository, now time.Time) *PredictionService {
	t.Helper()
	logger := newTestLogger(t)
	patterns := NewPatternService(repo, newTestCache(t), logger)
	svc := NewPredictionService(repo, patterns, logger)
	svc.now = func() time.Time { return now }
	return svc
}

func TestPredictRejectsUnknownTimeframe(t *testing.T) {
	svc := newPredictionFixture(t, newMemoryRepository(), time.Now().UTC())
	_, err := svc.Predict("user-1", "6months")
	require.ErrorIs(t, err, crisis.ErrValidation)
}

func TestPredictEmptyHistoryIsLowRisk(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	svc := newPredictionFixture(t, newMemoryRepository(), now)

	prediction, err := svc.Predict("user-1", crisis.Timeframe24h)
	require.NoError(t, err)

	assert.Equal(t, crisis.RiskLow, prediction.RiskLevel)
	assert.Zero(t, prediction.Probability)
	assert.Equal(t, crisis.Timeframe24h, prediction.Timeframe)
	assert.InDelta(t, 0.5, prediction.Confidence, 0.001)
	assert.Empty(t, prediction.Factors)
	assert.Empty(t, prediction.BasedOnPatterns)
}

func TestPredictEscalatingHistoryScoresHigh(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()

	// Four entries climbing to critical over the last three days, at
	// distinct hours so no time-of-day pattern muddies the score.
	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityLow, now.Add(-72*time.Hour)),
		entryAt("user-1", crisis.SeverityMedium, now.Add(-49*time.Hour)),
		entryAt("user-1", crisis.SeverityHigh, now.Add(-26*time.Hour)),
		entryAt("user-1", crisis.SeverityCritical, now.Add(-3*time.Hour)))

	svc := newPredictionFixture(t, repo, now)
	prediction, err := svc.Predict("user-1", crisis.Timeframe48h)
	require.NoError(t, err)

	// 30 for the recent critical, 25 for the escalation pattern, and
	// 0.9 x 15 for its predictive value.
	assert.Equal(t, crisis.RiskHigh, prediction.RiskLevel)
	assert.InDelta(t, 0.685, prediction.Probability, 0.001)
	assert.Equal(t, crisis.Timeframe48h, prediction.Timeframe)
	require.Len(t, prediction.BasedOnPatterns, 1)
	assert.Contains(t, prediction.BasedOnPatterns[0], "escalating")

	assert.Contains(t, prediction.Recommendations, "Verify the safety plan is current")
	assert.Contains(t, prediction.Recommendations, "Consider immediate professional support")
}

func TestPredictRepeatCriticalsScoreCritical(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()

	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityLow, now.Add(-96*time.Hour)),
		entryAt("user-1", crisis.SeverityMedium, now.Add(-73*time.Hour)),
		entryAt("user-1", crisis.SeverityHigh, now.Add(-50*time.Hour)),
		entryAt("user-1", crisis.SeverityCritical, now.Add(-27*time.Hour)),
		entryAt("user-1", crisis.SeverityCritical, now.Add(-4*time.Hour)))

	svc := newPredictionFixture(t, repo, now)
	prediction, err := svc.Predict("user-1", crisis.Timeframe24h)
	require.NoError(t, err)

	assert.Equal(t, crisis.RiskCritical, prediction.RiskLevel)
	assert.InDelta(t, 0.985, prediction.Probability, 0.001)
}

func TestPredictFrequencyBonus(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()

	// Eleven low entries spread across the last month. Whatever this mines
	// stays below the predictive-value floor, so only frequency scores.
	offsets := []time.Duration{700, 650, 590, 540, 470, 410, 330, 260, 170, 90, 20}
	for _, offset := range offsets {
		seedEntries(t, repo, entryAt("user-1", crisis.SeverityLow, now.Add(-offset*time.Hour)))
	}

	svc := newPredictionFixture(t, repo, now)
	prediction, err := svc.Predict("user-1", crisis.Timeframe1Week)
	require.NoError(t, err)

	assert.Equal(t, crisis.RiskLow, prediction.RiskLevel)
	assert.InDelta(t, 0.2, prediction.Probability, 0.001)
	require.Len(t, prediction.Factors, 1)
	assert.Contains(t, prediction.Factors[0], "11 events")
	// Ten or more history entries lift the confidence floor.
	assert.InDelta(t, 0.7, prediction.Confidence, 0.001)
}

func TestPredictIsIdempotent(t *testing.T) {
	now := time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)
	repo := newMemoryRepository()
	seedEntries(t, repo,
		entryAt("user-1", crisis.SeverityLow, now.Add(-72*time.Hour)),
		entryAt("user-1", crisis.SeverityMedium, now.Add(-49*time.Hour)),
		entryAt("user-1", crisis.SeverityHigh, now.Add(-26*time.Hour)),
		entryAt("user-1", crisis.SeverityCritical, now.Add(-3*time.Hour)))

	svc := newPredictionFixture(t, repo, now)

	first, err := svc.Predict("user-1", crisis.Timeframe1Month)
	require.NoError(t, err)
	second, err := svc.Predict("user-1", crisis.Timeframe1Month)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
