package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/repository"
	"github.com/waveground/backend/internal/util"
)

// GetIdentity returns the caller's anonymous persona and posting
// eligibility. Ban state is never exposed here; a shadow banned caller
// sees a perfectly normal response.
// GET /api/v1/identity
func (h *Handlers) GetIdentity(c *gin.Context) {
	signals := signalsFromRequest(c)
	id := h.resolver.Resolve(signals)

	record, err := h.identities.GetIdentity(c.Request.Context(), id.IdentityHash)
	if err == repository.ErrIdentityNotFound {
		// First contact. The username is deterministic, so the preview
		// matches what the first comment will be attributed to.
		c.JSON(http.StatusOK, gin.H{
			"username":       moderation.UsernameFromIdentity(id.IdentityHash),
			"total_comments": 0,
			"cooldown": gin.H{
				"is_active":    false,
				"remaining_ms": 0,
			},
		})
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load identity")
		return
	}

	cooldown := moderation.GetCooldownState(record.CooldownLevel, record.CooldownEndAt, timeNow())
	c.JSON(http.StatusOK, gin.H{
		"username":       record.Username,
		"total_comments": record.TotalComments,
		"cooldown": gin.H{
			"is_active":    cooldown.IsActive,
			"remaining_ms": cooldown.RemainingMs,
			"level":        int(cooldown.Level),
		},
	})
}

// CheckUsername screens a proposed display name against the profanity
// dictionary. Meant for account-creation flows elsewhere in the app.
// POST /api/v1/username/check
func (h *Handlers) CheckUsername(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "username is required")
		return
	}

	if err := moderation.ScreenUsername(req.Username); err != nil {
		c.JSON(http.StatusOK, gin.H{
			"available": false,
			"reason":    err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{"available": true})
}
