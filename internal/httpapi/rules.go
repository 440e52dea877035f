package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yuno/sentinel/internal/models"
	"github.com/yuno/sentinel/internal/rules"
)

// registerRuleRoutes registers the Rule Registry CRUD surface, per spec.md
// §6: GET /rules, POST /rules, DELETE /rules/{id}.
func registerRuleRoutes(r *gin.Engine, store *rules.Store) {
	r.GET("/rules", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rules": list})
	})

	r.POST("/rules", func(c *gin.Context) {
		var req models.RuleCreateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON payload"})
			return
		}

		rule, err := store.Create(c.Request.Context(), req)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusCreated, rule)
	})

	r.DELETE("/rules/:id", func(c *gin.Context) {
		if err := store.SoftDelete(c.Request.Context(), c.Param("id")); err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "deleted"})
	})
}
