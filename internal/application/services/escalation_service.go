package services

import (
	"fmt"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/notifications"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
)

// Auto-escalation thresholds over the recent history window.
const (
	escalationRecentWindow  = 5
	escalationQualifyingMin = 3
)

// EscalationService decides when a human responder must be paged and
// performs the delivery. The decision itself is a pure rule over recent
// history; delivery is fire-and-forget from the write path's perspective.
type EscalationService struct {
	pager  notifications.Pager
	alerts *AlertService
	logger *logging.ChanneledLogger
}

// NewEscalationService creates a new escalation service with its dependencies.
func NewEscalationService(pager notifications.Pager, alerts *AlertService, logger *logging.ChanneledLogger) *EscalationService {
	return &EscalationService{
		pager:  pager,
		alerts: alerts,
		logger: logger,
	}
}

// ShouldEscalate reports whether the newest entry demands human escalation:
// either the entry itself is critical, or at least three of the most recent
// five entries (including it) are high or critical. Entries must be ordered
// by creation time with the newest entry last.
func (s *EscalationService) ShouldEscalate(recent []*crisis.HistoryEntry, newest *crisis.HistoryEntry) bool {
	if newest.Analysis.Severity == crisis.SeverityCritical {
		return true
	}

	window := recent
	if len(window) > escalationRecentWindow {
		window = window[len(window)-escalationRecentWindow:]
	}

	qualifying := 0
	for _, entry := range window {
		if entry.Analysis.Severity == crisis.SeverityHigh || entry.Analysis.Severity == crisis.SeverityCritical {
			qualifying++
		}
	}
	return qualifying >= escalationQualifyingMin
}

// Evaluate applies the escalation rule and, when it fires, pages the
// responder channel on a background goroutine. A delivery failure is
// logged at the escalation channel and surfaced as an internal alert; it
// never rolls back or blocks the already-recorded event.
func (s *EscalationService) Evaluate(recent []*crisis.HistoryEntry, newest *crisis.HistoryEntry) bool {
	if !s.ShouldEscalate(recent, newest) {
		return false
	}

	condition := "3 of the last 5 events at high or critical severity"
	if newest.Analysis.Severity == crisis.SeverityCritical {
		condition = "critical severity event"
	}

	s.logger.Escalation().Warn("Auto-escalation triggered",
		"userId", newest.UserID,
		"entryId", newest.ID,
		"condition", condition)

	go s.deliver(newest.UserID, condition)
	return true
}

func (s *EscalationService) deliver(userID, condition string) {
	start := time.Now()

	err := s.pager.Send(&notifications.Page{
		TargetAudience: "crisis-responders",
		Title:          "Crisis auto-escalation",
		Message:        fmt.Sprintf("Auto-escalation for user %s: %s", userID, condition),
		Priority:       "critical",
		Type:           "crisis",
	})

	duration := time.Since(start)
	if duration > config.PagerTimeout {
		s.logger.Escalation().Warn("Pager delivery exceeded timeout budget",
			"userId", userID,
			"duration", duration,
			"budget", config.PagerTimeout)
	}

	if err != nil {
		wrapped := fmt.Errorf("%w: %v", crisis.ErrEscalationDelivery, err)
		s.logger.Escalation().Error("Escalation page delivery failed",
			"error", wrapped.Error(),
			"userId", userID,
			"condition", condition)
		s.alerts.RaiseDeliveryFailure(userID, err.Error())
		return
	}

	s.logger.Escalation().Info("Escalation page delivered",
		"userId", userID,
		"condition", condition,
		"duration", duration)
}
