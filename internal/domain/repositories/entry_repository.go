// Package repositories defines the persistence contracts for the crisis domain.
package repositories

import (
	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
)

// EntryRepository defines the contract for storing and retrieving crisis
// history entries. Implementations must list a user's entries ordered by
// creation time and must never physically delete an entry.
type EntryRepository interface {
	// Store appends a new entry to the user's history.
	Store(entry *crisis.HistoryEntry) error

	// FindByUser retrieves all entries for a user ordered by creation time.
	FindByUser(userID string) ([]*crisis.HistoryEntry, error)

	// FindByID retrieves a single entry owned by the user.
	// Returns crisis.ErrNotFound when no such entry exists.
	FindByID(userID, entryID string) (*crisis.HistoryEntry, error)

	// UpdateAnnotations persists the mutable annotation fields of an entry.
	// The analysis columns are never touched.
	UpdateAnnotations(entry *crisis.HistoryEntry) error
}
