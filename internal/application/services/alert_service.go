package services

import (
	"fmt"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/messaging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/oklog/ulid/v2"
)

// escalationRiskActions are the fixed suggested actions attached to an
// escalation-risk alert.
var escalationRiskActions = []string{
	"Contact crisis counselor",
	"Activate safety plan",
	"Notify emergency contacts",
}

// AlertService derives time-bound alerts from newly recorded events,
// annotations, and freshly mined pattern sets. Alerts are appended to the
// per-user alert log and filtered by expiry only at read time.
type AlertService struct {
	cache       *manager.Manager
	broadcaster messaging.Broadcaster
	logger      *logging.ChanneledLogger
	now         func() time.Time
}

// NewAlertService creates a new alert service with its dependencies.
func NewAlertService(cache *manager.Manager, broadcaster messaging.Broadcaster, logger *logging.ChanneledLogger) *AlertService {
	return &AlertService{
		cache:       cache,
		broadcaster: broadcaster,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// EvaluateNewEntry applies the fixed alert rules to a just-recorded entry.
func (s *AlertService) EvaluateNewEntry(entry *crisis.HistoryEntry) {
	if entry.Analysis.Severity != crisis.SeverityHigh && entry.Analysis.Severity != crisis.SeverityCritical {
		return
	}

	expires := s.now().Add(config.EscalationAlertTTL)
	s.raise(&crisis.Alert{
		ID:       ulid.Make().String(),
		UserID:   entry.UserID,
		Type:     crisis.AlertEscalationRisk,
		Severity: crisis.AlertUrgent,
		Message: fmt.Sprintf("A %s-severity crisis event was detected; immediate follow-up is recommended",
			entry.Analysis.Severity),
		CreatedAt:        s.now(),
		ActionRequired:   true,
		SuggestedActions: escalationRiskActions,
		ExpiresAt:        &expires,
	})
}

// EvaluateAnnotation raises a follow-up alert when an escalation outcome
// arrives unresolved.
func (s *AlertService) EvaluateAnnotation(entry *crisis.HistoryEntry, annotation *crisis.Annotation) {
	if annotation.EscalationOutcome == nil || annotation.EscalationOutcome.Resolved {
		return
	}

	expires := s.now().Add(config.FollowUpAlertTTL)
	s.raise(&crisis.Alert{
		ID:       ulid.Make().String(),
		UserID:   entry.UserID,
		Type:     crisis.AlertFollowUpDue,
		Severity: crisis.AlertWarning,
		Message: fmt.Sprintf("Escalation handled by %s remains unresolved; follow-up is due",
			annotation.EscalationOutcome.ContactedParty),
		CreatedAt:        s.now(),
		ActionRequired:   true,
		SuggestedActions: []string{"Schedule follow-up contact", "Confirm current safety status"},
		ExpiresAt:        &expires,
	})
}

// EvaluateMinedPatterns raises an informational alert when a freshly mined
// set introduces a high-severity pattern that the previous set lacked.
func (s *AlertService) EvaluateMinedPatterns(userID string, previous, mined []*crisis.Pattern) {
	known := make(map[string]bool, len(previous))
	for _, p := range previous {
		known[p.Description] = true
	}

	for _, p := range mined {
		if p.Severity != crisis.PatternSeverityHigh || known[p.Description] {
			continue
		}

		s.raise(&crisis.Alert{
			ID:               ulid.Make().String(),
			UserID:           userID,
			Type:             crisis.AlertPatternDetected,
			Severity:         crisis.AlertInfo,
			Message:          fmt.Sprintf("New high-severity pattern detected: %s", p.Description),
			CreatedAt:        s.now(),
			ActionRequired:   false,
			SuggestedActions: p.Recommendations,
		})
	}
}

// RaiseDeliveryFailure surfaces a paging failure as an internal alert so a
// missed escalation is visible to responders even without the page.
func (s *AlertService) RaiseDeliveryFailure(userID, reason string) {
	s.raise(&crisis.Alert{
		ID:               ulid.Make().String(),
		UserID:           userID,
		Type:             crisis.AlertInterventionNeed,
		Severity:         crisis.AlertCriticalLevel,
		Message:          fmt.Sprintf("Escalation page could not be delivered: %s", reason),
		CreatedAt:        s.now(),
		ActionRequired:   true,
		SuggestedActions: []string{"Reach the on-call responder through a backup channel"},
	})
}

// GetActive returns all unexpired alerts for the user.
func (s *AlertService) GetActive(userID string) []*crisis.Alert {
	return s.cache.GetActiveAlerts(userID, s.now())
}

func (s *AlertService) raise(alert *crisis.Alert) {
	s.cache.AppendAlert(alert.UserID, alert)
	if s.broadcaster != nil {
		s.broadcaster.BroadcastAlert(alert.UserID, alert)
	}

	s.logger.Alert().Info("Alert raised",
		"userId", alert.UserID,
		"alertId", alert.ID,
		"type", alert.Type,
		"severity", alert.Severity,
		"actionRequired", alert.ActionRequired)
}
