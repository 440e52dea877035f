package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/ingestor"
	"github.com/yuno/sentinel/internal/models"
)

// registerIngestRoutes registers POST /ingest, per spec.md §6.
func registerIngestRoutes(r *gin.Engine, in *ingestor.Ingestor) {
	r.POST("/ingest", func(c *gin.Context) {
		var req models.IngestRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		resp, err := in.Ingest(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}

		c.JSON(http.StatusOK, resp)
	})
}
