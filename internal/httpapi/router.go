// Package httpapi wires the public HTTP surface for the Ingestor binary:
// event ingestion, Rule Registry CRUD, and the alerts/metrics query
// endpoints, in the style of
// PratikDhanave-event-analytics-service/internal/httpserver.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/errs"
	"github.com/yuno/sentinel/internal/eventlog"
	"github.com/yuno/sentinel/internal/incidents"
	"github.com/yuno/sentinel/internal/ingestor"
	"github.com/yuno/sentinel/internal/metricstore"
	"github.com/yuno/sentinel/internal/rules"
)

// Pinger is implemented by every dependency /ready checks.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the gin engine backing the Ingestor process. Public:
// /health, /ready. Everything else reads or writes through the pipeline's
// stores directly — there is no tenant/auth layer in this core (spec.md
// §1 scopes multi-tenant isolation to a merchant_id label, not an API-key
// boundary).
func NewRouter(in *ingestor.Ingestor, ruleStore *rules.Store, incidentStore *incidents.Store, metrics *metricstore.Store, events *eventlog.Store) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
		defer cancel()

		deps := map[string]Pinger{"event_log": events, "metric_store": metrics}
		for name, dep := range deps {
			if err := dep.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not_ready", "dependency": name, "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	registerIngestRoutes(r, in)
	registerRuleRoutes(r, ruleStore)
	registerAlertRoutes(r, incidentStore)
	registerMetricRoutes(r, events)

	return r
}

// writeError renders err as the appropriate status code per the taxonomy
// in spec.md §7: ValidationError -> 400, TransientDependency -> 503,
// everything else -> 500.
func writeError(c *gin.Context, err error) {
	e, ok := errs.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	switch e.Kind {
	case errs.KindValidation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "field": e.Field})
	case errs.KindTransient:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
