// Package crisis provides the concrete SQL-based implementation of the
// crisis history entry repository.
//
// PURPOSE: Persist classifier-produced crisis events as they are recorded
// and apply post-hoc annotation patches. The analysis columns are written
// once at insert time and never updated; annotation columns are overwritten
// last-write-wins.
package crisis

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	domain "github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/persistence/database"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
)

// storedTimeFormat pads nanoseconds to a fixed width so the TEXT column
// sorts lexicographically in chronological order. RFC3339Nano trims
// trailing zeros and breaks that property within a second.
const storedTimeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLEntryRepository handles crisis event persistence to the database.
type SQLEntryRepository struct {
	db     *database.DB
	logger *logging.ChanneledLogger
}

// NewSQLEntryRepository creates a new instance of the repository.
func NewSQLEntryRepository(db *database.DB, logger *logging.ChanneledLogger) *SQLEntryRepository {
	return &SQLEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Store saves a new crisis history entry to the database.
func (r *SQLEntryRepository) Store(entry *domain.HistoryEntry) error {
	const query = `
		INSERT INTO crisis_events (id, user_id, created_at, severity, risk_level, categories,
			escalation_required, false_positive, feedback, escalation_outcome, contextual_data, intervention_result)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	categories, err := json.Marshal(entry.Analysis.Categories)
	if err != nil {
		return fmt.Errorf("%w: failed to encode categories: %v", domain.ErrPersistence, err)
	}

	start := time.Now()
	r.logger.Database().Debug("Executing crisis event insert",
		"entryId", entry.ID,
		"userId", entry.UserID,
		"severity", entry.Analysis.Severity)

	_, err = r.db.Exec(
		query,
		entry.ID,
		entry.UserID,
		entry.CreatedAt.UTC().Format(storedTimeFormat),
		string(entry.Analysis.Severity),
		entry.Analysis.RiskLevel,
		string(categories),
		boolToInt(entry.Analysis.EscalationRequired),
		boolToInt(entry.FalsePositive),
		marshalNullable(entry.Feedback),
		marshalNullable(entry.EscalationOutcome),
		marshalNullable(entry.ContextualData),
		marshalNullable(entry.InterventionResult),
	)
	if err != nil {
		r.logger.Database().Error("Crisis event insert failed",
			"error", err.Error(),
			"entryId", entry.ID,
			"userId", entry.UserID)
		return fmt.Errorf("%w: failed to store crisis event: %v", domain.ErrPersistence, err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Crisis event insert completed",
		"entryId", entry.ID,
		"userId", entry.UserID,
		"severity", entry.Analysis.Severity,
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, entry.UserID)
	}
	return nil
}

// FindByUser retrieves all entries for a user ordered by creation time.
func (r *SQLEntryRepository) FindByUser(userID string) ([]*domain.HistoryEntry, error) {
	const query = `
		SELECT id, user_id, created_at, severity, risk_level, categories, escalation_required,
			false_positive, feedback, escalation_outcome, contextual_data, intervention_result
		FROM crisis_events
		WHERE user_id = ?
		ORDER BY created_at, id`

	start := time.Now()
	r.logger.Database().Debug("Loading crisis events for user", "userId", userID)

	rows, err := r.db.Query(query, userID)
	if err != nil {
		r.logger.Database().Error("Failed to query crisis events", "error", err.Error(), "userId", userID)
		return nil, fmt.Errorf("%w: failed to query crisis events: %v", domain.ErrPersistence, err)
	}
	defer rows.Close()

	var entries []*domain.HistoryEntry
	for rows.Next() {
		entry, err := r.scanEntry(rows)
		if err != nil {
			// Malformed stored data must not poison the whole computation;
			// skip the row and log the omission.
			r.logger.Database().Error("Skipping malformed crisis event row", "error", err.Error(), "userId", userID)
			continue
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Database().Error("Row iteration error for crisis events", "error", err.Error(), "userId", userID)
		return nil, fmt.Errorf("%w: %v", domain.ErrPersistence, err)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Crisis events loaded",
		"userId", userID,
		"count", len(entries),
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, userID)
	}
	return entries, nil
}

// FindByID retrieves a single entry owned by the user.
func (r *SQLEntryRepository) FindByID(userID, entryID string) (*domain.HistoryEntry, error) {
	const query = `
		SELECT id, user_id, created_at, severity, risk_level, categories, escalation_required,
			false_positive, feedback, escalation_outcome, contextual_data, intervention_result
		FROM crisis_events
		WHERE user_id = ? AND id = ?`

	row := r.db.QueryRow(query, userID, entryID)
	entry, err := r.scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: entry %s for user %s", domain.ErrNotFound, entryID, userID)
		}
		r.logger.Database().Error("Failed to load crisis event", "error", err.Error(), "userId", userID, "entryId", entryID)
		return nil, fmt.Errorf("%w: failed to load crisis event: %v", domain.ErrPersistence, err)
	}
	return entry, nil
}

// UpdateAnnotations persists the mutable annotation fields of an entry.
// The analysis columns are deliberately absent from the statement.
func (r *SQLEntryRepository) UpdateAnnotations(entry *domain.HistoryEntry) error {
	const query = `
		UPDATE crisis_events
		SET false_positive = ?, feedback = ?, escalation_outcome = ?, intervention_result = ?, contextual_data = ?
		WHERE user_id = ? AND id = ?`

	start := time.Now()
	res, err := r.db.Exec(
		query,
		boolToInt(entry.FalsePositive),
		marshalNullable(entry.Feedback),
		marshalNullable(entry.EscalationOutcome),
		marshalNullable(entry.InterventionResult),
		marshalNullable(entry.ContextualData),
		entry.UserID,
		entry.ID,
	)
	if err != nil {
		r.logger.Database().Error("Annotation update failed",
			"error", err.Error(),
			"entryId", entry.ID,
			"userId", entry.UserID)
		return fmt.Errorf("%w: failed to update annotations: %v", domain.ErrPersistence, err)
	}

	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return fmt.Errorf("%w: entry %s for user %s", domain.ErrNotFound, entry.ID, entry.UserID)
	}

	duration := time.Since(start)
	r.logger.Database().Info("Annotation update completed",
		"entryId", entry.ID,
		"userId", entry.UserID,
		"duration", duration)
	if duration > config.SlowQueryThreshold {
		r.logger.LogSlowQuery(query, duration, entry.UserID)
	}
	return nil
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLEntryRepository) scanEntry(row rowScanner) (*domain.HistoryEntry, error) {
	var (
		entry              domain.HistoryEntry
		createdAtStr       string
		severityStr        string
		categoriesJSON     string
		escalationRequired int
		falsePositive      int
		feedback           sql.NullString
		escalationOutcome  sql.NullString
		contextualData     sql.NullString
		interventionResult sql.NullString
	)

	err := row.Scan(
		&entry.ID,
		&entry.UserID,
		&createdAtStr,
		&severityStr,
		&entry.Analysis.RiskLevel,
		&categoriesJSON,
		&escalationRequired,
		&falsePositive,
		&feedback,
		&escalationOutcome,
		&contextualData,
		&interventionResult,
	)
	if err != nil {
		return nil, err
	}

	entry.CreatedAt, err = r.parseTimestamp(createdAtStr)
	if err != nil {
		return nil, err
	}

	severity, err := domain.ParseSeverity(severityStr)
	if err != nil {
		return nil, err
	}
	entry.Analysis.Severity = severity

	if err := json.Unmarshal([]byte(categoriesJSON), &entry.Analysis.Categories); err != nil {
		return nil, fmt.Errorf("invalid categories payload: %w", err)
	}
	entry.Analysis.EscalationRequired = escalationRequired != 0
	entry.FalsePositive = falsePositive != 0

	if err := unmarshalNullable(feedback, &entry.Feedback); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(escalationOutcome, &entry.EscalationOutcome); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(contextualData, &entry.ContextualData); err != nil {
		return nil, err
	}
	if err := unmarshalNullable(interventionResult, &entry.InterventionResult); err != nil {
		return nil, err
	}

	return &entry, nil
}

// parseTimestamp handles multiple timestamp formats
func (r *SQLEntryRepository) parseTimestamp(timestampStr string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, timestampStr); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02 15:04:05", timestampStr); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("unable to parse timestamp format: %s", timestampStr)
}

func marshalNullable(v any) any {
	switch val := v.(type) {
	case *domain.Feedback:
		if val == nil {
			return nil
		}
	case *domain.EscalationOutcome:
		if val == nil {
			return nil
		}
	case *domain.ContextualData:
		if val == nil {
			return nil
		}
	case *domain.InterventionResult:
		if val == nil {
			return nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return string(data)
}

func unmarshalNullable[T any](col sql.NullString, target **T) error {
	if !col.Valid || col.String == "" {
		return nil
	}
	var v T
	if err := json.Unmarshal([]byte(col.String), &v); err != nil {
		return fmt.Errorf("invalid annotation payload: %w", err)
	}
	*target = &v
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
