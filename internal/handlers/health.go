package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveground/backend/internal/database"
)

// Health reports service liveness and database reachability
// GET /health
func (h *Handlers) Health(c *gin.Context) {
	if err := database.Health(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "degraded",
			"error":  "database unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
