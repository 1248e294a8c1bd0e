package crisis

import "time"

// RiskTrend is the direction of the most recent severity transitions.
type RiskTrend string

const (
	TrendIncreasing RiskTrend = "increasing"
	TrendStable     RiskTrend = "stable"
	TrendDecreasing RiskTrend = "decreasing"
)

// Statistics is a point-in-time summary derived from a user's full history.
// It is never persisted; every read recomputes it from the event store.
type Statistics struct {
	TotalEvents             int              `json:"totalEvents"`
	SeverityBreakdown       map[Severity]int `json:"severityBreakdown"`
	CategoryBreakdown       map[string]int   `json:"categoryBreakdown"`
	FalsePositiveRate       float64          `json:"falsePositiveRate"`       // 0-100
	AverageResponseTime     float64          `json:"averageResponseTime"`     // minutes
	EscalationRate          float64          `json:"escalationRate"`          // 0-100
	ResolutionRate          float64          `json:"resolutionRate"`          // 0-100
	InterventionSuccessRate float64          `json:"interventionSuccessRate"` // 0-100
	PatternCount            int              `json:"patternCount"`
	RiskTrend               RiskTrend        `json:"riskTrend"`
	LastAnalysis            *time.Time       `json:"lastAnalysis,omitempty"`
}
