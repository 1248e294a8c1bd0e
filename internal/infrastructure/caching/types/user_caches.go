// Package types defines cache data structures for per-user crisis state.
package types

import (
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
)

// PatternSnapshot is an immutable, atomically published pattern set for one
// user. Writers build a fresh snapshot and swap the pointer; readers never
// observe a half-updated set.
type PatternSnapshot struct {
	Patterns []*crisis.Pattern `json:"patterns"`
	MinedAt  time.Time         `json:"minedAt"`
}

// UserPatternCache holds the current pattern snapshot for one user.
type UserPatternCache struct {
	Mu          sync.RWMutex
	Snapshot    *PatternSnapshot
	LastUpdated time.Time
}

// UserAlertCache holds the alert log for one user. Alerts are append-only;
// expired alerts are filtered at read time and pruned by the cleanup worker.
type UserAlertCache struct {
	Mu          sync.RWMutex
	Alerts      []*crisis.Alert
	LastUpdated time.Time
}
