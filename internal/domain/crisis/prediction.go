package crisis

import "fmt"

// RiskLevel is the banded output of the risk predictor.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Timeframe is the horizon a prediction was requested for. The scoring model
// does not currently vary by it; it is echoed back to the caller.
type Timeframe string

const (
	Timeframe24h    Timeframe = "24h"
	Timeframe48h    Timeframe = "48h"
	Timeframe1Week  Timeframe = "1week"
	Timeframe1Month Timeframe = "1month"
)

// ParseTimeframe validates a timeframe token from the wire.
func ParseTimeframe(raw string) (Timeframe, error) {
	switch Timeframe(raw) {
	case Timeframe24h, Timeframe48h, Timeframe1Week, Timeframe1Month:
		return Timeframe(raw), nil
	}
	return "", fmt.Errorf("%w: unknown timeframe %q", ErrValidation, raw)
}

// Prediction is a forward-looking risk synthesis. It is computed fresh per
// request from current state and never stored.
type Prediction struct {
	RiskLevel       RiskLevel `json:"riskLevel"`
	Probability     float64   `json:"probability"` // 0-1
	Timeframe       Timeframe `json:"timeframe"`
	Factors         []string  `json:"factors"`
	Recommendations []string  `json:"recommendations"`
	Confidence      float64   `json:"confidence"` // 0-1
	BasedOnPatterns []string  `json:"basedOnPatterns"`
}
