package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/incidents"
	"github.com/yuno/sentinel/internal/models"
)

const defaultAlertsLimit = 200

// registerAlertRoutes registers GET /alerts?since=&state=, per spec.md §6.
func registerAlertRoutes(r *gin.Engine, store *incidents.Store) {
	r.GET("/alerts", func(c *gin.Context) {
		since := time.Now().UTC().Add(-24 * time.Hour)
		if raw := c.Query("since"); raw != "" {
			parsed, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "since must be RFC3339"})
				return
			}
			since = parsed.UTC()
		}

		var state *models.IncidentState
		if raw := c.Query("state"); raw != "" {
			s := models.IncidentState(raw)
			state = &s
		}

		limit := defaultAlertsLimit
		if raw := c.Query("limit"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				limit = n
			}
		}

		list, err := store.List(c.Request.Context(), since, state, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"alerts": list})
	})
}
