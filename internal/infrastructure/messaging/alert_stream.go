package messaging

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/domain/crisis"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
	"github.com/gorilla/websocket"
)

// AlertBroadcaster manages user-scoped websocket subscriptions for the
// responder alert stream.
type AlertBroadcaster struct {
	userClients map[string][]chan []byte // userId -> subscriber channels
	mu          sync.Mutex
	logger      *logging.ChanneledLogger
	upgrader    websocket.Upgrader
}

// NewAlertBroadcaster creates the broadcaster.
func NewAlertBroadcaster(logger *logging.ChanneledLogger) *AlertBroadcaster {
	return &AlertBroadcaster{
		userClients: make(map[string][]chan []byte),
		logger:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// BroadcastAlert pushes an alert to every subscriber of the given user.
// Full subscriber buffers are skipped so a stalled client cannot block
// the write path.
func (b *AlertBroadcaster) BroadcastAlert(userID string, alert *crisis.Alert) {
	payload, err := json.Marshal(alert)
	if err != nil {
		b.logger.Stream().Error("Failed to encode alert for broadcast", "error", err.Error(), "alertId", alert.ID)
		return
	}

	b.mu.Lock()
	subscribers := b.userClients[userID]
	delivered := 0
	for _, ch := range subscribers {
		select {
		case ch <- payload:
			delivered++
		default:
			// Subscriber buffer full; drop rather than block.
		}
	}
	b.mu.Unlock()

	if len(subscribers) > 0 {
		b.logger.Stream().Debug("Alert broadcast",
			"userId", userID,
			"alertId", alert.ID,
			"subscribers", len(subscribers),
			"delivered", delivered)
	}
}

// Subscribe registers a new subscriber channel for a user.
func (b *AlertBroadcaster) Subscribe(userID string) chan []byte {
	ch := make(chan []byte, 10)

	b.mu.Lock()
	b.userClients[userID] = append(b.userClients[userID], ch)
	count := len(b.userClients[userID])
	b.mu.Unlock()

	b.logger.Stream().Info("Alert stream subscriber added", "userId", userID, "subscribers", count)
	return ch
}

// Unsubscribe removes a subscriber channel for a user.
func (b *AlertBroadcaster) Unsubscribe(userID string, ch chan []byte) {
	b.mu.Lock()
	subscribers := b.userClients[userID]
	for i, existing := range subscribers {
		if existing == ch {
			b.userClients[userID] = append(subscribers[:i], subscribers[i+1:]...)
			break
		}
	}
	if len(b.userClients[userID]) == 0 {
		delete(b.userClients, userID)
	}
	b.mu.Unlock()

	close(ch)
	b.logger.Stream().Info("Alert stream subscriber removed", "userId", userID)
}

// ServeStream upgrades the request to a websocket and pumps alerts until
// the client disconnects. Heartbeats keep intermediaries from reaping
// idle connections.
func (b *AlertBroadcaster) ServeStream(w http.ResponseWriter, r *http.Request, userID string) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Stream().Error("Websocket upgrade failed", "error", err.Error(), "userId", userID)
		return
	}
	defer conn.Close()

	ch := b.Subscribe(userID)
	defer b.Unsubscribe(userID, ch)

	// Drain reads so close frames are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	heartbeat := time.NewTicker(config.StreamHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case payload, ok := <-ch:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				b.logger.Stream().Debug("Alert stream write failed, closing", "error", err.Error(), "userId", userID)
				return
			}
		case <-heartbeat.C:
			conn.SetWriteDeadline(time.Now().Add(config.StreamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
