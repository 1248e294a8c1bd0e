// Package services contains the application services of the crisis engine.
package services

import (
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/repositories"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// Thresholds for the risk trend classification over the last five entries.
const (
	trendWindow              = 5
	trendIncreasingThreshold = 0.6
	trendDecreasingThreshold = 0.4
)

// StatisticsService computes point-in-time summaries from a user's full
// history. Results are always derived, never stored.
type StatisticsService struct {
	repo     repositories.EntryRepository
	patterns *PatternService
	logger   *logging.ChanneledLogger
}

// NewStatisticsService creates a new statistics service with its dependencies.
func NewStatisticsService(repo repositories.EntryRepository, patterns *PatternService, logger *logging.ChanneledLogger) *StatisticsService {
	return &StatisticsService{
		repo:     repo,
		patterns: patterns,
		logger:   logger,
	}
}

// Compute derives the current statistics for a user in a single pass.
// Entries flagged as false positives are excluded from every metric except
// the total count and the false-positive rate itself.
func (s *StatisticsService) Compute(userID string) (*crisis.Statistics, error) {
	start := time.Now()

	all, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	stats := &crisis.Statistics{
		SeverityBreakdown: make(map[crisis.Severity]int),
		CategoryBreakdown: make(map[string]int),
		RiskTrend:         crisis.TrendStable,
	}

	if len(all) == 0 {
		return stats, nil
	}

	stats.TotalEvents = len(all)

	falsePositives := 0
	entries := make([]*crisis.HistoryEntry, 0, len(all))
	for _, entry := range all {
		if entry.FalsePositive {
			falsePositives++
			continue
		}
		entries = append(entries, entry)
	}
	stats.FalsePositiveRate = percentage(falsePositives, len(all))

	var (
		escalationsRequired   int
		resolvedEscalations   int
		interventionAttempts  int
		interventionSuccesses int
		responseTimeSum       float64
		responseTimeCount     int
	)

	for _, entry := range entries {
		stats.SeverityBreakdown[entry.Analysis.Severity]++
		for _, category := range entry.Analysis.Categories {
			stats.CategoryBreakdown[category]++
		}

		if entry.Analysis.EscalationRequired {
			escalationsRequired++
			if entry.EscalationOutcome != nil && entry.EscalationOutcome.Resolved {
				resolvedEscalations++
			}
		}
		if entry.EscalationOutcome != nil {
			responseTimeSum += float64(entry.EscalationOutcome.ResponseTimeMinutes)
			responseTimeCount++
		}
		if entry.InterventionResult != nil {
			interventionAttempts++
			if entry.InterventionResult.Successful {
				interventionSuccesses++
			}
		}
	}

	stats.EscalationRate = percentage(escalationsRequired, len(entries))
	stats.ResolutionRate = percentage(resolvedEscalations, escalationsRequired)
	stats.InterventionSuccessRate = percentage(interventionSuccesses, interventionAttempts)
	if responseTimeCount > 0 {
		stats.AverageResponseTime = responseTimeSum / float64(responseTimeCount)
	}

	stats.RiskTrend = classifyTrend(entries)

	if len(entries) > 0 {
		last := entries[len(entries)-1].CreatedAt
		stats.LastAnalysis = &last
	}

	if patterns, err := s.patterns.CurrentPatterns(userID); err == nil {
		stats.PatternCount = len(patterns)
	} else {
		// Pattern derivation is best-effort here; statistics must not fail
		// because mining could not run.
		s.logger.Analytics().Error("Pattern count unavailable for statistics", "error", err.Error(), "userId", userID)
	}

	s.logger.Analytics().Debug("Statistics computed",
		"userId", userID,
		"totalEvents", stats.TotalEvents,
		"riskTrend", stats.RiskTrend,
		"duration", time.Since(start))

	return stats, nil
}

// classifyTrend examines the last five entries' severities. A trend is
// increasing when more than 60% of adjacent transitions step up, and
// decreasing when fewer than 40% do. Fewer than three entries is stable.
func classifyTrend(entries []*crisis.HistoryEntry) crisis.RiskTrend {
	if len(entries) < 3 {
		return crisis.TrendStable
	}

	window := entries
	if len(window) > trendWindow {
		window = window[len(window)-trendWindow:]
	}

	transitions := len(window) - 1
	increases := 0
	for i := 1; i < len(window); i++ {
		if window[i].Analysis.Severity.Rank() > window[i-1].Analysis.Severity.Rank() {
			increases++
		}
	}

	ratio := float64(increases) / float64(transitions)
	switch {
	case ratio > trendIncreasingThreshold:
		return crisis.TrendIncreasing
	case ratio < trendDecreasingThreshold:
		return crisis.TrendDecreasing
	default:
		return crisis.TrendStable
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}
