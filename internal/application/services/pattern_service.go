package services

import (
	"fmt"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/repositories"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
)

// Mining thresholds. These are part of the engine's behavioral contract;
// changing them changes which regularities surface as patterns.
const (
	timeBucketMinCount      = 3
	timeBucketHighCount     = 5
	triggerMinCount         = 2
	triggerHighCount        = 4
	escalationWindow        = 5
	escalationMinIncreases  = 2 // pattern fires when increases exceed this
	escalationMinEntries    = 3
	seasonalMinEntries      = 20
	seasonalFactor          = 1.5
	cyclicalMinEntries      = 10
	cyclicalVarianceFactor  = 0.5
	cyclicalMinMeanDays     = 1.0
)

// PatternService mines behavioral patterns from a user's full crisis
// history. Every mine is a from-scratch pass; there is no incremental
// delta, and the published set always replaces the prior one wholesale.
type PatternService struct {
	repo   repositories.EntryRepository
	cache  *manager.Manager
	logger *logging.ChanneledLogger
	miner  minerRendezvous
}

// minerRendezvous lets pattern reads wait for an in-flight background mine
// to publish before consulting the snapshot.
type minerRendezvous interface {
	Wait(userID string)
}

// NewPatternService creates a new pattern service with its dependencies.
func NewPatternService(repo repositories.EntryRepository, cache *manager.Manager, logger *logging.ChanneledLogger) *PatternService {
	return &PatternService{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// AttachMiner wires the background miner so reads rendezvous with a mine
// still in flight for the user.
func (s *PatternService) AttachMiner(miner minerRendezvous) {
	s.miner = miner
}

// CurrentPatterns returns the published pattern set for a user, mining
// synchronously on a cache miss so the first read after startup is never
// empty for a user with history. When a background re-mine is in flight the
// read waits for its publication, so a read issued after a recorded event
// always reflects that event.
func (s *PatternService) CurrentPatterns(userID string) ([]*crisis.Pattern, error) {
	if s.miner != nil {
		s.miner.Wait(userID)
	}

	if snapshot, ok := s.cache.GetPatternSnapshot(userID); ok {
		return snapshot.Patterns, nil
	}

	patterns, err := s.MineForUser(userID)
	if err != nil {
		return nil, err
	}
	s.cache.ReplacePatterns(userID, patterns)
	return patterns, nil
}

// MineForUser loads the user's full history and runs all five passes.
func (s *PatternService) MineForUser(userID string) ([]*crisis.Pattern, error) {
	start := time.Now()

	entries, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	patterns := s.Mine(entries)

	s.logger.Analytics().Debug("Pattern mining completed",
		"userId", userID,
		"entries", len(entries),
		"patterns", len(patterns),
		"duration", time.Since(start))

	return patterns, nil
}

// Mine runs the five independent mining passes over the given history.
// All five run even when earlier passes find nothing. Entries must be
// ordered by creation time.
func (s *PatternService) Mine(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	patterns := make([]*crisis.Pattern, 0)
	patterns = append(patterns, mineTimeOfDay(entries)...)
	patterns = append(patterns, mineTriggers(entries)...)
	patterns = append(patterns, mineEscalation(entries)...)
	patterns = append(patterns, mineSeasonal(entries)...)
	patterns = append(patterns, mineCyclical(entries)...)
	return patterns
}

// mineTimeOfDay buckets entries by hour of day and flags recurring hours.
func mineTimeOfDay(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	if len(entries) == 0 {
		return nil
	}

	type bucket struct {
		count int
		last  time.Time
	}
	hours := make(map[int]*bucket)
	for _, entry := range entries {
		h := entry.CreatedAt.Hour()
		b := hours[h]
		if b == nil {
			b = &bucket{}
			hours[h] = b
		}
		b.count++
		if entry.CreatedAt.After(b.last) {
			b.last = entry.CreatedAt
		}
	}

	total := float64(len(entries))
	var patterns []*crisis.Pattern
	for hour := 0; hour < 24; hour++ {
		b, ok := hours[hour]
		if !ok || b.count < timeBucketMinCount {
			continue
		}

		severity := crisis.PatternSeverityMedium
		if b.count >= timeBucketHighCount {
			severity = crisis.PatternSeverityHigh
		}

		patterns = append(patterns, &crisis.Pattern{
			Type:            crisis.PatternTimeBased,
			Description:     fmt.Sprintf("Crisis events cluster around %02d:00", hour),
			Frequency:       b.count,
			LastOccurrence:  b.last,
			Confidence:      float64(b.count) / total,
			Severity:        severity,
			PredictiveValue: capUnit(float64(b.count) / total * 2),
			Recommendations: []string{
				fmt.Sprintf("Schedule proactive check-ins before %02d:00", hour),
				"Prepare coping strategies for the recurring window",
			},
		})
	}
	return patterns
}

// mineTriggers buckets entries by their contextual trigger label. Entries
// without a trigger are excluded from this pass.
func mineTriggers(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	if len(entries) == 0 {
		return nil
	}

	type bucket struct {
		count int
		last  time.Time
	}
	triggers := make(map[string]*bucket)
	order := make([]string, 0)
	for _, entry := range entries {
		if entry.ContextualData == nil || entry.ContextualData.Trigger == nil || *entry.ContextualData.Trigger == "" {
			continue
		}
		trigger := *entry.ContextualData.Trigger
		b := triggers[trigger]
		if b == nil {
			b = &bucket{}
			triggers[trigger] = b
			order = append(order, trigger)
		}
		b.count++
		if entry.CreatedAt.After(b.last) {
			b.last = entry.CreatedAt
		}
	}

	total := float64(len(entries))
	var patterns []*crisis.Pattern
	for _, trigger := range order {
		b := triggers[trigger]
		if b.count < triggerMinCount {
			continue
		}

		severity := crisis.PatternSeverityMedium
		if b.count >= triggerHighCount {
			severity = crisis.PatternSeverityHigh
		}

		patterns = append(patterns, &crisis.Pattern{
			Type:            crisis.PatternTriggerBased,
			Description:     fmt.Sprintf("Recurring trigger: %s", trigger),
			Frequency:       b.count,
			LastOccurrence:  b.last,
			Confidence:      capUnit(float64(b.count) / total * 2),
			Severity:        severity,
			PredictiveValue: capUnit(float64(b.count) / total * 1.5),
			Recommendations: []string{
				fmt.Sprintf("Develop a coping plan for %q situations", trigger),
				"Discuss the recurring trigger with a counselor",
			},
		})
	}
	return patterns
}

// mineEscalation tests whether severity has been strictly climbing across
// the most recent five entries.
func mineEscalation(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	if len(entries) < escalationMinEntries {
		return nil
	}

	window := entries
	if len(window) > escalationWindow {
		window = window[len(window)-escalationWindow:]
	}

	increases := 0
	for i := 1; i < len(window); i++ {
		if window[i].Analysis.Severity.Rank() > window[i-1].Analysis.Severity.Rank() {
			increases++
		}
	}
	if increases <= escalationMinIncreases {
		return nil
	}

	return []*crisis.Pattern{{
		Type:            crisis.PatternEscalation,
		Description:     "Severity is escalating across recent events",
		Frequency:       increases,
		LastOccurrence:  window[len(window)-1].CreatedAt,
		Confidence:      0.8,
		Severity:        crisis.PatternSeverityHigh,
		PredictiveValue: 0.9,
		Recommendations: []string{
			"Consider immediate professional support",
			"Review and activate the safety plan",
		},
	}}
}

// mineSeasonal flags calendar months whose event count exceeds 1.5x the
// uniform expectation. Requires at least 20 entries of history.
func mineSeasonal(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	if len(entries) < seasonalMinEntries {
		return nil
	}

	type bucket struct {
		count int
		last  time.Time
	}
	months := make(map[time.Month]*bucket)
	for _, entry := range entries {
		m := entry.CreatedAt.Month()
		b := months[m]
		if b == nil {
			b = &bucket{}
			months[m] = b
		}
		b.count++
		if entry.CreatedAt.After(b.last) {
			b.last = entry.CreatedAt
		}
	}

	expected := float64(len(entries)) / 12.0
	var patterns []*crisis.Pattern
	for m := time.January; m <= time.December; m++ {
		b, ok := months[m]
		if !ok || float64(b.count) <= expected*seasonalFactor {
			continue
		}

		patterns = append(patterns, &crisis.Pattern{
			Type:            crisis.PatternSeasonal,
			Description:     fmt.Sprintf("Elevated crisis frequency during %s", m),
			Frequency:       b.count,
			LastOccurrence:  b.last,
			Confidence:      0.7,
			Severity:        crisis.PatternSeverityMedium,
			PredictiveValue: 0.6,
			Recommendations: []string{
				fmt.Sprintf("Plan additional support ahead of %s", m),
				"Share the seasonal pattern with the care team",
			},
		})
	}
	return patterns
}

// mineCyclical looks for a regular interval between events: a low-variance
// gap distribution with a mean above one day. Requires at least 10 entries.
func mineCyclical(entries []*crisis.HistoryEntry) []*crisis.Pattern {
	if len(entries) < cyclicalMinEntries {
		return nil
	}

	intervals := make([]float64, 0, len(entries)-1)
	for i := 1; i < len(entries); i++ {
		gap := entries[i].CreatedAt.Sub(entries[i-1].CreatedAt).Hours() / 24.0
		intervals = append(intervals, gap)
	}

	mean := 0.0
	for _, gap := range intervals {
		mean += gap
	}
	mean /= float64(len(intervals))

	variance := 0.0
	for _, gap := range intervals {
		variance += (gap - mean) * (gap - mean)
	}
	variance /= float64(len(intervals))

	if variance >= cyclicalVarianceFactor*mean || mean <= cyclicalMinMeanDays {
		return nil
	}

	return []*crisis.Pattern{{
		Type:            crisis.PatternCyclical,
		Description:     fmt.Sprintf("Crisis events recur roughly every %.0f days", mean),
		Frequency:       len(intervals),
		LastOccurrence:  entries[len(entries)-1].CreatedAt,
		Confidence:      0.6,
		Severity:        crisis.PatternSeverityMedium,
		PredictiveValue: 0.7,
		Recommendations: []string{
			fmt.Sprintf("Schedule preventive check-ins on a %.0f-day cadence", mean),
			"Track mood leading into the expected window",
		},
	}}
}

func capUnit(v float64) float64 {
	if v > 1.0 {
		return 1.0
	}
	return v
}
