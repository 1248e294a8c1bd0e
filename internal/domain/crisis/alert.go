package crisis

import "time"

// AlertType classifies what an alert is asking a responder to do.
type AlertType string

const (
	AlertPatternDetected  AlertType = "pattern_detected"
	AlertEscalationRisk   AlertType = "escalation_risk"
	AlertInterventionNeed AlertType = "intervention_needed"
	AlertFollowUpDue      AlertType = "follow_up_due"
)

// AlertSeverity grades the urgency of an alert.
type AlertSeverity string

const (
	AlertInfo          AlertSeverity = "info"
	AlertWarning       AlertSeverity = "warning"
	AlertUrgent        AlertSeverity = "urgent"
	AlertCriticalLevel AlertSeverity = "critical"
)

// Alert is a time-bound actionable notice derived from recorded events or
// mined patterns. Alerts are never deleted; expired ones are filtered out
// at read time.
type Alert struct {
	ID               string        `json:"id"`
	UserID           string        `json:"userId"`
	Type             AlertType     `json:"type"`
	Severity         AlertSeverity `json:"severity"`
	Message          string        `json:"message"`
	CreatedAt        time.Time     `json:"createdAt"`
	ActionRequired   bool          `json:"actionRequired"`
	SuggestedActions []string      `json:"suggestedActions"`
	ExpiresAt        *time.Time    `json:"expiresAt,omitempty"`
}

// Active reports whether the alert has not yet expired at the given time.
func (a *Alert) Active(now time.Time) bool {
	return a.ExpiresAt == nil || a.ExpiresAt.After(now)
}
