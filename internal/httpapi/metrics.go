package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/eventlog"
)

const defaultMetricsMinutes = 30

// registerMetricRoutes registers GET /metrics/recent?minutes=N, per
// spec.md §6: "an ordered list of per-minute snapshots with fields
// timestamp, total_count, approval_rate, error_rate".
func registerMetricRoutes(r *gin.Engine, events *eventlog.Store) {
	r.GET("/metrics/recent", func(c *gin.Context) {
		minutes := defaultMetricsMinutes
		if raw := c.Query("minutes"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				minutes = n
			}
		}

		snaps, err := events.RecentMinuteSnapshots(c.Request.Context(), minutes)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"snapshots": snaps})
	})
}
