package middleware

import (
	"fmt"

	"github.com/SafeHarborHealth/safeharbor-go/internal/infrastructure/observability/performance"
	"github.com/gin-gonic/gin"
)

// PerformanceMiddleware times every request and folds it into the tracker's
// per-route aggregates.
func PerformanceMiddleware(tracker *performance.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		marker := tracker.StartOperation(c.Request.Method+" "+route, c.GetHeader("X-User-ID"))

		c.Next()

		if status := c.Writer.Status(); status >= 500 {
			marker.SetError(fmt.Errorf("request failed with status %d", status))
		}
		tracker.CompleteOperation(marker)
	}
}
