// Package crisis defines the core entities of the crisis history and
// risk prediction engine.
package crisis

import (
	"fmt"
	"time"
)

// Severity is the classifier's ordered severity verdict for one event.
type Severity string

const (
	SeverityNone     Severity = "none"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank maps a severity to its canonical ordering (none=0 .. critical=4).
func (s Severity) Rank() int {
	switch s {
	case SeverityNone:
		return 0
	case SeverityLow:
		return 1
	case SeverityMedium:
		return 2
	case SeverityHigh:
		return 3
	case SeverityCritical:
		return 4
	}
	return 0
}

// ParseSeverity validates a severity token from the wire.
func ParseSeverity(raw string) (Severity, error) {
	switch Severity(raw) {
	case SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return Severity(raw), nil
	}
	return "", fmt.Errorf("%w: unknown severity %q", ErrValidation, raw)
}

// Analysis is the upstream classifier's completed verdict. It is consumed
// as-is and never recomputed or modified after the entry is recorded.
type Analysis struct {
	Severity           Severity `json:"severity"`
	RiskLevel          int      `json:"riskLevel"`
	Categories         []string `json:"categories"`
	EscalationRequired bool     `json:"escalationRequired"`
}

// Feedback is an optional user/responder assessment attached post-hoc.
type Feedback struct {
	Helpful bool   `json:"helpful"`
	Text    string `json:"text,omitempty"`
	Rating  int    `json:"rating"` // 1-5
}

// EscalationOutcome records what happened after a human escalation.
type EscalationOutcome struct {
	ContactedParty      string   `json:"contactedParty"`
	ResponseTimeMinutes int      `json:"responseTimeMinutes"`
	Resolved            bool     `json:"resolved"`
	Effectiveness       int      `json:"effectiveness"` // 1-10
	FollowUpActions     []string `json:"followUpActions,omitempty"`
}

// ContextualData captures the circumstances around an event. TimeOfDay and
// DayOfWeek are fixed at record time and never change afterwards.
type ContextualData struct {
	TimeOfDay   string  `json:"timeOfDay"`
	DayOfWeek   string  `json:"dayOfWeek"`
	Trigger     *string `json:"trigger,omitempty"`
	Mood        *string `json:"mood,omitempty"`
	StressLevel *int    `json:"stressLevel,omitempty"` // 1-10
}

// InterventionResult records the outcome of an attempted intervention.
type InterventionResult struct {
	Type            string   `json:"type"`
	Successful      bool     `json:"successful"`
	DurationMinutes int      `json:"durationMinutes"`
	ResourcesUsed   []string `json:"resourcesUsed,omitempty"`
	Outcome         string   `json:"outcome,omitempty"`
}

// HistoryEntry is one recorded crisis-detection event. Entries are
// append-only: the analysis is immutable and annotations overwrite
// last-write-wins without merging. Entries are never physically deleted.
type HistoryEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
	Analysis  Analysis  `json:"analysis"`

	FalsePositive      bool                `json:"falsePositive"`
	Feedback           *Feedback           `json:"feedback,omitempty"`
	EscalationOutcome  *EscalationOutcome  `json:"escalationOutcome,omitempty"`
	ContextualData     *ContextualData     `json:"contextualData,omitempty"`
	InterventionResult *InterventionResult `json:"interventionResult,omitempty"`
}

// Annotation is a post-hoc patch to an existing entry. Exactly one of the
// four kinds must be set per call; a repeated annotation of the same kind
// replaces the prior value wholesale.
type Annotation struct {
	FalsePositive      *bool               `json:"falsePositive,omitempty"`
	Feedback           *Feedback           `json:"feedback,omitempty"`
	EscalationOutcome  *EscalationOutcome  `json:"escalationOutcome,omitempty"`
	InterventionResult *InterventionResult `json:"interventionResult,omitempty"`
}

// Validate ensures an annotation carries exactly one kind.
func (a *Annotation) Validate() error {
	kinds := 0
	if a.FalsePositive != nil {
		kinds++
	}
	if a.Feedback != nil {
		kinds++
	}
	if a.EscalationOutcome != nil {
		kinds++
	}
	if a.InterventionResult != nil {
		kinds++
	}
	if kinds != 1 {
		return fmt.Errorf("%w: annotation must carry exactly one kind, got %d", ErrValidation, kinds)
	}
	if a.Feedback != nil && (a.Feedback.Rating < 1 || a.Feedback.Rating > 5) {
		return fmt.Errorf("%w: feedback rating %d outside 1-5", ErrValidation, a.Feedback.Rating)
	}
	if a.EscalationOutcome != nil && (a.EscalationOutcome.Effectiveness < 1 || a.EscalationOutcome.Effectiveness > 10) {
		return fmt.Errorf("%w: escalation effectiveness %d outside 1-10", ErrValidation, a.EscalationOutcome.Effectiveness)
	}
	return nil
}

// DeriveContext fills the immutable time-of-day and day-of-week fields from
// the event timestamp when the caller supplied no contextual data.
func DeriveContext(at time.Time) *ContextualData {
	return &ContextualData{
		TimeOfDay: TimeOfDayBucket(at),
		DayOfWeek: at.Weekday().String(),
	}
}

// TimeOfDayBucket maps an hour to its coarse bucket label.
func TimeOfDayBucket(at time.Time) string {
	switch h := at.Hour(); {
	case h < 6:
		return "night"
	case h < 12:
		return "morning"
	case h < 18:
		return "afternoon"
	default:
		return "evening"
	}
}
