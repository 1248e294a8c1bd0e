// Package messaging provides real-time alert delivery to connected
// responder clients.
package messaging

import "github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"

// Broadcaster defines the contract for pushing newly derived alerts to
// live subscribers. Implementations must never block the write path.
type Broadcaster interface {
	// BroadcastAlert delivers an alert to every client subscribed to the
	// given user. Slow clients are skipped, not waited on.
	BroadcastAlert(userID string, alert *crisis.Alert)
}
