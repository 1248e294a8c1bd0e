package crisis

import "time"

// PatternType identifies which of the five mining passes produced a pattern.
type PatternType string

const (
	PatternTimeBased    PatternType = "time_based"
	PatternTriggerBased PatternType = "trigger_based"
	PatternEscalation   PatternType = "escalation"
	PatternSeasonal     PatternType = "seasonal"
	PatternCyclical     PatternType = "cyclical"
)

// PatternSeverity tiers a mined pattern.
type PatternSeverity string

const (
	PatternSeverityLow    PatternSeverity = "low"
	PatternSeverityMedium PatternSeverity = "medium"
	PatternSeverityHigh   PatternSeverity = "high"
)

// Pattern is a mined regularity in one user's crisis history. The full set
// for a user is recomputed wholesale on every new event and atomically
// replaces the prior set.
type Pattern struct {
	Type            PatternType     `json:"type"`
	Description     string          `json:"description"`
	Frequency       int             `json:"frequency"`
	LastOccurrence  time.Time       `json:"lastOccurrence"`
	Confidence      float64         `json:"confidence"`      // 0-1
	Severity        PatternSeverity `json:"severity"`
	PredictiveValue float64         `json:"predictiveValue"` // 0-1
	Recommendations []string        `json:"recommendations"`
}
