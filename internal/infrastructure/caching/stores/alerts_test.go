package stores

import (
	"testing"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func alertExpiring(id string, expiresAt *time.Time) *crisis.Alert {
	return &crisis.Alert{
		ID:        id,
		UserID:    "user-1",
		Type:      crisis.AlertEscalationRisk,
		Severity:  crisis.AlertUrgent,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: expiresAt,
	}
}

func TestGetActiveFiltersByExpiry(t *testing.T) {
	store := NewAlertStore(nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	store.Append("user-1", alertExpiring("expired", &past))
	store.Append("user-1", alertExpiring("live", &future))
	store.Append("user-1", alertExpiring("evergreen", nil))

	active := store.GetActive("user-1", now)
	require.Len(t, active, 2)
	ids := []string{active[0].ID, active[1].ID}
	assert.Contains(t, ids, "live")
	assert.Contains(t, ids, "evergreen")
}

func TestGetActiveUnknownUser(t *testing.T) {
	store := NewAlertStore(nil)
	assert.Empty(t, store.GetActive("nobody", time.Now().UTC()))
}

func TestPruneExpiredKeepsRecentlyExpired(t *testing.T) {
	store := NewAlertStore(nil)
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	longGone := now.Add(-48 * time.Hour)
	justExpired := now.Add(-time.Minute)
	store.Append("user-1", alertExpiring("long-gone", &longGone))
	store.Append("user-1", alertExpiring("just-expired", &justExpired))
	store.Append("user-1", alertExpiring("evergreen", nil))

	pruned, evicted := store.PruneExpired(now, 24*time.Hour)
	assert.Equal(t, 1, pruned)
	assert.Zero(t, evicted)

	// Just-expired alerts are retained in the log but filtered at read time.
	assert.Len(t, store.GetActive("user-1", now), 1)
	assert.Equal(t, 1, store.UserCount())
}

func TestPruneExpiredAgesOutUnexpiringAlerts(t *testing.T) {
	store := NewAlertStore(nil)
	now := time.Now().UTC()

	old := alertExpiring("old-info", nil)
	old.CreatedAt = now.Add(-48 * time.Hour)
	store.Append("user-1", old)
	store.Append("user-1", alertExpiring("fresh-info", nil))

	pruned, evicted := store.PruneExpired(now, 24*time.Hour)
	assert.Equal(t, 1, pruned)
	assert.Zero(t, evicted)

	active := store.GetActive("user-1", now)
	require.Len(t, active, 1)
	assert.Equal(t, "fresh-info", active[0].ID)
}

func TestPruneExpiredEvictsIdleEmptyUsers(t *testing.T) {
	store := NewAlertStore(nil)
	now := time.Now().UTC()

	past := now.Add(-time.Minute)
	store.Append("user-1", alertExpiring("stale", &past))
	require.Equal(t, 1, store.UserCount())

	// With a negative ttl everything is long-expired and the user is idle.
	pruned, evicted := store.PruneExpired(now, -time.Second)
	assert.Equal(t, 1, pruned)
	assert.Equal(t, 1, evicted)
	assert.Zero(t, store.UserCount())
}
