package services

import (
	"fmt"
	"math"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/repositories"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// Risk scoring weights and thresholds. The score is open-ended; only the
// probability is clamped to [0,1].
const (
	predictionWindow        = 30 // most recent entries considered
	criticalRecencyDays     = 7
	criticalWeight          = 30.0
	escalationPatternWeight = 25.0
	frequencyWindowDays     = 30
	frequencyMinEntries     = 10 // weight applies when count exceeds this
	frequencyWeight         = 20.0
	patternWeightFactor     = 15.0
	patternPredictiveFloor  = 0.7

	riskCriticalScore = 70.0
	riskHighScore     = 50.0
	riskMediumScore   = 30.0
)

// highRiskRecommendations are appended whenever the predicted level lands
// at high or critical.
var highRiskRecommendations = []string{
	"Verify the safety plan is current",
	"Verify emergency contacts are reachable",
	"Consider continuous crisis-support availability",
}

// PredictionService combines recent severe events, escalation detection,
// event frequency, and pattern predictive values into a bounded risk
// prediction. Predictions are computed fresh per request and never stored.
type PredictionService struct {
	repo     repositories.EntryRepository
	patterns *PatternService
	logger   *logging.ChanneledLogger
	now      func() time.Time
}

// NewPredictionService creates a new prediction service with its dependencies.
func NewPredictionService(repo repositories.EntryRepository, patterns *PatternService, logger *logging.ChanneledLogger) *PredictionService {
	return &PredictionService{
		repo:     repo,
		patterns: patterns,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Predict scores the user's near-term risk over the requested timeframe.
// The timeframe is echoed into the result; the scoring model does not vary
// by it.
func (s *PredictionService) Predict(userID string, timeframe crisis.Timeframe) (*crisis.Prediction, error) {
	if _, err := crisis.ParseTimeframe(string(timeframe)); err != nil {
		return nil, err
	}

	start := time.Now()

	entries, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}
	patterns, err := s.patterns.CurrentPatterns(userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	recent := entries
	if len(recent) > predictionWindow {
		recent = recent[len(recent)-predictionWindow:]
	}

	score := 0.0
	factors := make([]string, 0, 4)
	recommendations := make([]string, 0, 4)
	basedOn := make([]string, 0, len(patterns))

	weekAgo := now.AddDate(0, 0, -criticalRecencyDays)
	criticalCount := 0
	for _, entry := range recent {
		if entry.Analysis.Severity == crisis.SeverityCritical && entry.CreatedAt.After(weekAgo) {
			criticalCount++
		}
	}
	if criticalCount > 0 {
		score += criticalWeight * float64(criticalCount)
		factors = append(factors, fmt.Sprintf("%d critical event(s) in the last %d days", criticalCount, criticalRecencyDays))
	}

	for _, p := range patterns {
		if p.Type == crisis.PatternEscalation {
			score += escalationPatternWeight
			factors = append(factors, "Severity escalation pattern detected")
			break
		}
	}

	monthAgo := now.AddDate(0, 0, -frequencyWindowDays)
	monthCount := 0
	for _, entry := range recent {
		if entry.CreatedAt.After(monthAgo) {
			monthCount++
		}
	}
	if monthCount > frequencyMinEntries {
		score += frequencyWeight
		factors = append(factors, fmt.Sprintf("High event frequency: %d events in the last %d days", monthCount, frequencyWindowDays))
	}

	for _, p := range patterns {
		if p.PredictiveValue <= patternPredictiveFloor {
			continue
		}
		score += p.PredictiveValue * patternWeightFactor
		basedOn = append(basedOn, p.Description)
		recommendations = append(recommendations, p.Recommendations...)
	}
	if len(basedOn) > 0 {
		factors = append(factors, fmt.Sprintf("%d high-predictive-value pattern(s) active", len(basedOn)))
	}

	level := crisis.RiskLow
	switch {
	case score >= riskCriticalScore:
		level = crisis.RiskCritical
	case score >= riskHighScore:
		level = crisis.RiskHigh
	case score >= riskMediumScore:
		level = crisis.RiskMedium
	}

	if level == crisis.RiskHigh || level == crisis.RiskCritical {
		recommendations = append(recommendations, highRiskRecommendations...)
	}

	confidence := 0.5
	if len(entries) >= 10 {
		confidence += 0.2
	}
	if len(patterns) >= 3 {
		confidence += 0.2
	}
	if len(entries) >= 30 {
		confidence += 0.1
	}
	if confidence > 1.0 {
		confidence = 1.0
	}

	prediction := &crisis.Prediction{
		RiskLevel:       level,
		Probability:     math.Min(score/100.0, 1.0),
		Timeframe:       timeframe,
		Factors:         factors,
		Recommendations: dedupe(recommendations),
		Confidence:      confidence,
		BasedOnPatterns: basedOn,
	}

	s.logger.Analytics().Debug("Risk prediction computed",
		"userId", userID,
		"riskLevel", level,
		"score", score,
		"confidence", confidence,
		"duration", time.Since(start))

	return prediction, nil
}

// dedupe removes duplicate strings while preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
