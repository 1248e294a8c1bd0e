// Package performance provides operation timing for the crisis engine
// with per-operation aggregates and slow-operation reporting.
package performance

import (
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
)

// Marker represents a single performance measurement for an operation.
type Marker struct {
	Operation string        `json:"operation"` // e.g., "crisis:record", "patterns:mine"
	UserID    string        `json:"userId"`
	StartTime time.Time     `json:"startTime"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Completed bool          `json:"completed"`
}

// Complete marks the operation as finished and fixes its duration.
func (m *Marker) Complete() {
	if m.Completed {
		return
	}
	m.Duration = time.Since(m.StartTime)
	m.Completed = true
}

// SetError records a failure on the marker.
func (m *Marker) SetError(err error) {
	if err != nil {
		m.Error = err.Error()
		m.Success = false
	}
}

// OperationStats aggregates completed markers for one operation name.
type OperationStats struct {
	Count     int64         `json:"count"`
	Failures  int64         `json:"failures"`
	TotalTime time.Duration `json:"-"`
	MaxTime   time.Duration `json:"-"`
}

// OperationSummary is the read-side view of one operation's aggregates.
type OperationSummary struct {
	Count     int64   `json:"count"`
	Failures  int64   `json:"failures"`
	AvgMillis float64 `json:"avgMs"`
	MaxMillis float64 `json:"maxMs"`
}

// Tracker aggregates operation markers and reports slow operations on the
// performance channel.
type Tracker struct {
	stats         map[string]*OperationStats
	mu            sync.Mutex
	logger        *logging.ChanneledLogger
	slowThreshold time.Duration
	started       time.Time
}

// NewTracker creates a new performance tracker.
func NewTracker(logger *logging.ChanneledLogger) *Tracker {
	return &Tracker{
		stats:         make(map[string]*OperationStats),
		logger:        logger,
		slowThreshold: config.SlowOperationThreshold,
		started:       time.Now().UTC(),
	}
}

// StartOperation creates a new marker for an operation.
func (t *Tracker) StartOperation(operation, userID string) *Marker {
	return &Marker{
		Operation: operation,
		UserID:    userID,
		StartTime: time.Now(),
		Success:   true, // Assume success until proven otherwise
	}
}

// CompleteOperation completes a marker and folds it into the aggregates.
func (t *Tracker) CompleteOperation(marker *Marker) {
	if marker == nil || marker.Completed {
		return
	}
	marker.Complete()

	t.mu.Lock()
	stats, ok := t.stats[marker.Operation]
	if !ok {
		stats = &OperationStats{}
		t.stats[marker.Operation] = stats
	}
	stats.Count++
	if !marker.Success {
		stats.Failures++
	}
	stats.TotalTime += marker.Duration
	if marker.Duration > stats.MaxTime {
		stats.MaxTime = marker.Duration
	}
	t.mu.Unlock()

	if marker.Duration > t.slowThreshold {
		t.logger.Perf().Warn("Slow operation detected",
			"operation", marker.Operation,
			"userId", marker.UserID,
			"duration", marker.Duration,
			"threshold", t.slowThreshold)
	}
}

// Summary reports the per-operation aggregates collected so far.
func (t *Tracker) Summary() map[string]OperationSummary {
	t.mu.Lock()
	defer t.mu.Unlock()

	summary := make(map[string]OperationSummary, len(t.stats))
	for operation, stats := range t.stats {
		avg := float64(0)
		if stats.Count > 0 {
			avg = float64(stats.TotalTime.Milliseconds()) / float64(stats.Count)
		}
		summary[operation] = OperationSummary{
			Count:     stats.Count,
			Failures:  stats.Failures,
			AvgMillis: avg,
			MaxMillis: float64(stats.MaxTime.Milliseconds()),
		}
	}
	return summary
}

// Uptime reports how long the tracker has been collecting.
func (t *Tracker) Uptime() time.Duration {
	return time.Since(t.started)
}
