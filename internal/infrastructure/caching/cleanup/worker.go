// Package cleanup provides the background cache cleanup worker.
package cleanup

import (
	"context"
	"time"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/caching/manager"
	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/logging"
	"github.com/SafeHarborHealth/safeharbor-go/pkg/config"
)

// Worker handles background cache cleanup operations. Per-user pattern and
// alert structures grow with the active user population; without eviction
// a long-lived instance would accumulate state for every user ever seen.
type Worker struct {
	cache    *manager.Manager
	interval time.Duration
	ttl      time.Duration
	logger   *logging.ChanneledLogger
}

// NewWorker creates a new cleanup worker with configuration from pkg/config.
func NewWorker(cache *manager.Manager, logger *logging.ChanneledLogger) *Worker {
	return &Worker{
		cache:    cache,
		interval: config.CleanupInterval,
		ttl:      config.UserCacheTTL,
		logger:   logger,
	}
}

// Start begins the cleanup worker routine, using the configured interval
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Cache().Info("Cache cleanup worker started",
		"interval", w.interval,
		"ttl", w.ttl)

	for {
		select {
		case <-ctx.Done():
			w.logger.Shutdown().Info("Cache cleanup worker stopping")
			return
		case <-ticker.C:
			w.cache.Cleanup(time.Now().UTC(), w.ttl)
		}
	}
}
