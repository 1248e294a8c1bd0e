package services

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/repositories"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/oklog/ulid/v2"
)

// QuerySort selects the sort key for history queries.
type QuerySort string

const (
	SortByTimestamp QuerySort = "timestamp"
	SortBySeverity  QuerySort = "severity"
	SortByRisk      QuerySort = "risk"
)

// QueryFilter narrows a history query. The zero value returns the full
// non-false-positive history in insertion order.
type QueryFilter struct {
	Start                 *time.Time
	End                   *time.Time
	Severities            []crisis.Severity
	IncludeFalsePositives bool
	SortBy                QuerySort
	Limit                 int // most recent N; 0 means all
}

// HistoryService is the engine's event store: the per-user append-only log
// of crisis history entries everything else derives from. All mutating
// operations for one user are serialized through a per-user mutex; reads
// go straight to the repository and the atomically published caches.
type HistoryService struct {
	repo       repositories.EntryRepository
	alerts     *AlertService
	escalation *EscalationService
	miner      *PatternMiner
	logger     *logging.ChanneledLogger

	userLocks sync.Map // userId -> *sync.Mutex
	now       func() time.Time
}

// NewHistoryService creates a new history service with its dependencies.
func NewHistoryService(
	repo repositories.EntryRepository,
	alerts *AlertService,
	escalation *EscalationService,
	miner *PatternMiner,
	logger *logging.ChanneledLogger,
) *HistoryService {
	return &HistoryService{
		repo:       repo,
		alerts:     alerts,
		escalation: escalation,
		miner:      miner,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *HistoryService) lockUser(userID string) *sync.Mutex {
	lock, _ := s.userLocks.LoadOrStore(userID, &sync.Mutex{})
	return lock.(*sync.Mutex)
}

// Record appends a new entry for the classifier's verdict. On success it
// derives alerts and evaluates auto-escalation synchronously, and schedules
// background pattern re-mining. Storage failures propagate unchanged;
// losing a crisis event is a safety incident.
func (s *HistoryService) Record(userID string, analysis crisis.Analysis, contextual *crisis.ContextualData) (*crisis.HistoryEntry, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", crisis.ErrValidation)
	}
	if _, err := crisis.ParseSeverity(string(analysis.Severity)); err != nil {
		return nil, err
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	createdAt := s.now()
	if contextual == nil {
		contextual = crisis.DeriveContext(createdAt)
	} else {
		if contextual.TimeOfDay == "" {
			contextual.TimeOfDay = crisis.TimeOfDayBucket(createdAt)
		}
		if contextual.DayOfWeek == "" {
			contextual.DayOfWeek = createdAt.Weekday().String()
		}
	}

	entry := &crisis.HistoryEntry{
		ID:             ulid.Make().String(),
		UserID:         userID,
		CreatedAt:      createdAt,
		Analysis:       analysis,
		ContextualData: contextual,
	}

	start := time.Now()
	if err := s.repo.Store(entry); err != nil {
		s.logger.Crisis().Error("Failed to record crisis event",
			"error", err.Error(),
			"userId", userID,
			"severity", analysis.Severity)
		return nil, err
	}

	s.logger.Crisis().Info("Crisis event recorded",
		"userId", userID,
		"entryId", entry.ID,
		"severity", analysis.Severity,
		"escalationRequired", analysis.EscalationRequired,
		"duration", time.Since(start))

	// Synchronous side effects on the write path.
	s.alerts.EvaluateNewEntry(entry)

	recent, err := s.repo.FindByUser(userID)
	if err != nil {
		// The entry is safely stored; the escalation rule just cannot see
		// the full window. Fall back to the newest entry alone.
		s.logger.Crisis().Error("Failed to load recent history for escalation decision",
			"error", err.Error(),
			"userId", userID)
		recent = []*crisis.HistoryEntry{entry}
	}
	s.escalation.Evaluate(recent, entry)

	// Pattern re-mining runs in the background with per-user coalescing.
	s.miner.Schedule(userID)

	return entry, nil
}

// Annotate applies one post-hoc annotation kind to an existing entry.
// A repeated annotation of the same kind overwrites the prior value
// (documented last-write-wins); conflicting writes are never merged.
// The analysis and the contextual time-of-day fields never change.
func (s *HistoryService) Annotate(userID, entryID string, annotation *crisis.Annotation) (*crisis.HistoryEntry, error) {
	if err := annotation.Validate(); err != nil {
		return nil, err
	}

	lock := s.lockUser(userID)
	lock.Lock()
	defer lock.Unlock()

	entry, err := s.repo.FindByID(userID, entryID)
	if err != nil {
		return nil, err
	}

	switch {
	case annotation.FalsePositive != nil:
		entry.FalsePositive = *annotation.FalsePositive
	case annotation.Feedback != nil:
		feedback := *annotation.Feedback
		entry.Feedback = &feedback
	case annotation.EscalationOutcome != nil:
		outcome := *annotation.EscalationOutcome
		entry.EscalationOutcome = &outcome
	case annotation.InterventionResult != nil:
		result := *annotation.InterventionResult
		entry.InterventionResult = &result
	}

	if err := s.repo.UpdateAnnotations(entry); err != nil {
		return nil, err
	}

	s.logger.Crisis().Info("Crisis event annotated",
		"userId", userID,
		"entryId", entryID,
		"falsePositive", entry.FalsePositive)

	s.alerts.EvaluateAnnotation(entry, annotation)

	// Annotations feed the mined statistics, so re-mine here too.
	s.miner.Schedule(userID)

	return entry, nil
}

// Query returns the user's entries narrowed by the filter. False positives
// are excluded unless explicitly requested. Sorting is stable and uses the
// canonical severity ordering; Limit keeps the most recent N entries.
func (s *HistoryService) Query(userID string, filter QueryFilter) ([]*crisis.HistoryEntry, error) {
	entries, err := s.repo.FindByUser(userID)
	if err != nil {
		return nil, err
	}

	filtered := make([]*crisis.HistoryEntry, 0, len(entries))
	for _, entry := range entries {
		if !filter.IncludeFalsePositives && entry.FalsePositive {
			continue
		}
		if filter.Start != nil && entry.CreatedAt.Before(*filter.Start) {
			continue
		}
		if filter.End != nil && entry.CreatedAt.After(*filter.End) {
			continue
		}
		if len(filter.Severities) > 0 && !severityIn(entry.Analysis.Severity, filter.Severities) {
			continue
		}
		filtered = append(filtered, entry)
	}

	if filter.Limit > 0 && len(filtered) > filter.Limit {
		// Entries arrive ordered by creation time, so the most recent N
		// are the tail.
		filtered = filtered[len(filtered)-filter.Limit:]
	}

	switch filter.SortBy {
	case SortBySeverity:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Analysis.Severity.Rank() > filtered[j].Analysis.Severity.Rank()
		})
	case SortByRisk:
		sort.SliceStable(filtered, func(i, j int) bool {
			return filtered[i].Analysis.RiskLevel > filtered[j].Analysis.RiskLevel
		})
	case SortByTimestamp, "":
		// Already in insertion (timestamp) order.
	default:
		return nil, fmt.Errorf("%w: unknown sort key %q", crisis.ErrValidation, filter.SortBy)
	}

	return filtered, nil
}

func severityIn(severity crisis.Severity, set []crisis.Severity) bool {
	for _, s := range set {
		if s == severity {
			return true
		}
	}
	return false
}
