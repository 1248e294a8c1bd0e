package services

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/notifications"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/stretchr/testify/require"
)

func newTestLogger(t *testing.T) *logging.ChanneledLogger {
	t.Helper()
	logger, err := logging.NewChanneledLogger(&logging.LoggerConfig{
		OutputToFile:    false,
		OutputToConsole: false,
		DefaultLevel:    slog.LevelError + 4,
		ChannelLevels:   make(map[logging.Channel]slog.Level),
	})
	require.NoError(t, err)
	return logger
}

func newTestCache(t *testing.T) *manager.Manager {
	t.Helper()
	return manager.NewManager(newTestLogger(t))
}

// memoryRepository is an in-memory EntryRepository keeping per-user entries
// in insertion order.
type memoryRepository struct {
	mu       sync.Mutex
	entries  map[string][]*crisis.HistoryEntry
	failAll  bool
	findGate chan struct{}
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{entries: make(map[string][]*crisis.HistoryEntry)}
}

func (r *memoryRepository) Store(entry *crisis.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return fmt.Errorf("%w: store unavailable", crisis.ErrPersistence)
	}
	copied := *entry
	r.entries[entry.UserID] = append(r.entries[entry.UserID], &copied)
	return nil
}

// setFindGate makes subsequent FindByUser calls block until the channel is
// closed, so tests can hold a background mine in flight.
func (r *memoryRepository) setFindGate(gate chan struct{}) {
	r.mu.Lock()
	r.findGate = gate
	r.mu.Unlock()
}

func (r *memoryRepository) FindByUser(userID string) ([]*crisis.HistoryEntry, error) {
	r.mu.Lock()
	gate := r.findGate
	r.mu.Unlock()
	if gate != nil {
		<-gate
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failAll {
		return nil, fmt.Errorf("%w: query unavailable", crisis.ErrPersistence)
	}
	out := make([]*crisis.HistoryEntry, 0, len(r.entries[userID]))
	for _, entry := range r.entries[userID] {
		copied := *entry
		out = append(out, &copied)
	}
	return out, nil
}

func (r *memoryRepository) FindByID(userID, entryID string) (*crisis.HistoryEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.entries[userID] {
		if entry.ID == entryID {
			copied := *entry
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("%w: entry %s", crisis.ErrNotFound, entryID)
}

func (r *memoryRepository) UpdateAnnotations(entry *crisis.HistoryEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.entries[entry.UserID] {
		if existing.ID == entry.ID {
			copied := *entry
			r.entries[entry.UserID][i] = &copied
			return nil
		}
	}
	return fmt.Errorf("%w: entry %s", crisis.ErrNotFound, entry.ID)
}

// fakePager records pages and signals each delivery so tests can wait for
// the fire-and-forget goroutine.
type fakePager struct {
	mu    sync.Mutex
	pages []*notifications.Page
	err   error
	sent  chan struct{}
}

func newFakePager() *fakePager {
	return &fakePager{sent: make(chan struct{}, 16)}
}

func (p *fakePager) Send(page *notifications.Page) error {
	p.mu.Lock()
	p.pages = append(p.pages, page)
	err := p.err
	p.mu.Unlock()
	p.sent <- struct{}{}
	return err
}

func (p *fakePager) waitForPage(t *testing.T) *notifications.Page {
	t.Helper()
	select {
	case <-p.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for page delivery")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pages[len(p.pages)-1]
}

func (p *fakePager) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.pages)
}

// recordingBroadcaster captures broadcast alerts.
type recordingBroadcaster struct {
	mu     sync.Mutex
	alerts []*crisis.Alert
}

func (b *recordingBroadcaster) BroadcastAlert(userID string, alert *crisis.Alert) {
	b.mu.Lock()
	b.alerts = append(b.alerts, alert)
	b.mu.Unlock()
}

func (b *recordingBroadcaster) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.alerts)
}

func entryAt(userID string, severity crisis.Severity, at time.Time) *crisis.HistoryEntry {
	return &crisis.HistoryEntry{
		ID:        fmt.Sprintf("%s-%d", userID, at.UnixNano()),
		UserID:    userID,
		CreatedAt: at,
		Analysis: crisis.Analysis{
			Severity:  severity,
			RiskLevel: severity.Rank() * 20,
		},
		ContextualData: crisis.DeriveContext(at),
	}
}

func withTrigger(entry *crisis.HistoryEntry, trigger string) *crisis.HistoryEntry {
	if entry.ContextualData == nil {
		entry.ContextualData = crisis.DeriveContext(entry.CreatedAt)
	}
	entry.ContextualData.Trigger = &trigger
	return entry
}

func seedEntries(t *testing.T, repo *memoryRepository, entries ...*crisis.HistoryEntry) {
	t.Helper()
	for _, entry := range entries {
		require.NoError(t, repo.Store(entry))
	}
}
