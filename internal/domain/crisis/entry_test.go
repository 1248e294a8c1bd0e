package crisis

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeverityRankOrdering(t *testing.T) {
	ordered := []Severity{SeverityNone, SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical}
	for i, severity := range ordered {
		assert.Equal(t, i, severity.Rank())
	}
	assert.Zero(t, Severity("bogus").Rank())
}

func TestParseSeverity(t *testing.T) {
	severity, err := ParseSeverity("critical")
	require.NoError(t, err)
	assert.Equal(t, SeverityCritical, severity)

	_, err = ParseSeverity("severe")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestParseTimeframe(t *testing.T) {
	for _, raw := range []string{"24h", "48h", "1week", "1month"} {
		_, err := ParseTimeframe(raw)
		assert.NoError(t, err)
	}
	_, err := ParseTimeframe("1year")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAnnotationValidateExactlyOneKind(t *testing.T) {
	flag := true

	assert.ErrorIs(t, (&Annotation{}).Validate(), ErrValidation)

	err := (&Annotation{
		FalsePositive: &flag,
		Feedback:      &Feedback{Rating: 3},
	}).Validate()
	assert.ErrorIs(t, err, ErrValidation)

	assert.NoError(t, (&Annotation{FalsePositive: &flag}).Validate())
}

func TestAnnotationValidateRanges(t *testing.T) {
	assert.ErrorIs(t, (&Annotation{Feedback: &Feedback{Rating: 0}}).Validate(), ErrValidation)
	assert.ErrorIs(t, (&Annotation{Feedback: &Feedback{Rating: 6}}).Validate(), ErrValidation)
	assert.NoError(t, (&Annotation{Feedback: &Feedback{Rating: 5}}).Validate())

	assert.ErrorIs(t, (&Annotation{
		EscalationOutcome: &EscalationOutcome{Effectiveness: 11},
	}).Validate(), ErrValidation)
	assert.NoError(t, (&Annotation{
		EscalationOutcome: &EscalationOutcome{Effectiveness: 10},
	}).Validate())
}

func TestTimeOfDayBucket(t *testing.T) {
	day := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		hour int
		want string
	}{
		{0, "night"}, {5, "night"},
		{6, "morning"}, {11, "morning"},
		{12, "afternoon"}, {17, "afternoon"},
		{18, "evening"}, {23, "evening"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeOfDayBucket(day.Add(time.Duration(tt.hour)*time.Hour)))
	}
}

func TestDeriveContext(t *testing.T) {
	at := time.Date(2026, 3, 2, 22, 30, 0, 0, time.UTC) // a Monday evening
	ctx := DeriveContext(at)
	assert.Equal(t, "evening", ctx.TimeOfDay)
	assert.Equal(t, "Monday", ctx.DayOfWeek)
	assert.Nil(t, ctx.Trigger)
}

func TestAlertActive(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	assert.True(t, (&Alert{}).Active(now))
	assert.True(t, (&Alert{ExpiresAt: &future}).Active(now))
	assert.False(t, (&Alert{ExpiresAt: &past}).Active(now))
	assert.False(t, (&Alert{ExpiresAt: &now}).Active(now))
}
