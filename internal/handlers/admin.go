package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"

	"github.com/waveground/backend/internal/logger"
	"github.com/waveground/backend/internal/metrics"
	"github.com/waveground/backend/internal/models"
	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/repository"
	"github.com/waveground/backend/internal/util"
)

const (
	defaultAdminPageSize = 25
	maxAdminPageSize     = 100
)

// requireTOTP gates destructive admin actions behind a fresh one-time
// code when the account has 2FA enabled. The code travels in a header
// so the action's request body stays clean.
func requireTOTP(c *gin.Context) (*models.AdminUser, bool) {
	admin, ok := util.GetAdminFromContext(c)
	if !ok {
		return nil, false
	}
	if !admin.TwoFactorEnabled {
		return admin, true
	}

	code := c.GetHeader("X-TOTP-Code")
	if code == "" || admin.TwoFactorSecret == nil || !totp.Validate(code, *admin.TwoFactorSecret) {
		util.RespondForbidden(c, "valid one-time code required")
		return nil, false
	}
	return admin, true
}

// ListFlaggedIdentities returns identities with flagged comments,
// most-flagged first
// GET /api/v1/admin/identities/flagged
func (h *Handlers) ListFlaggedIdentities(c *gin.Context) {
	limit, offset := pagination(c, defaultAdminPageSize, maxAdminPageSize)

	identities, err := h.identities.ListFlaggedIdentities(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondInternalError(c, "failed to load identities")
		return
	}
	c.JSON(http.StatusOK, gin.H{"identities": identities, "count": len(identities)})
}

// ListBannedIdentities returns identities under any ban
// GET /api/v1/admin/identities/banned
func (h *Handlers) ListBannedIdentities(c *gin.Context) {
	limit, offset := pagination(c, defaultAdminPageSize, maxAdminPageSize)

	identities, err := h.identities.ListBannedIdentities(c.Request.Context(), limit, offset)
	if err != nil {
		util.RespondInternalError(c, "failed to load identities")
		return
	}
	c.JSON(http.StatusOK, gin.H{"identities": identities, "count": len(identities)})
}

// GetIdentityDetail returns one identity with its recent abuse trail
// GET /api/v1/admin/identities/:hash
func (h *Handlers) GetIdentityDetail(c *gin.Context) {
	hash := c.Param("hash")

	record, err := h.identities.GetIdentity(c.Request.Context(), hash)
	if err == repository.ErrIdentityNotFound {
		util.RespondNotFound(c, "identity")
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load identity")
		return
	}

	since := time.Now().Add(-30 * 24 * time.Hour)
	abuseLogs, err := h.identities.RecentAbuse(c.Request.Context(), hash, since)
	if err != nil {
		util.RespondInternalError(c, "failed to load abuse history")
		return
	}

	comments, err := h.comments.RecentByIdentity(c.Request.Context(), hash, since)
	if err != nil {
		util.RespondInternalError(c, "failed to load comments")
		return
	}

	status := moderation.GetBanStatus(record.IsShadowBanned, record.IsAutoBanned, record.IsAdminBanned, record.IsAdminUnbanned)
	c.JSON(http.StatusOK, gin.H{
		"identity":   record,
		"ban_status": status,
		"abuse_logs": abuseLogs,
		"comments":   comments,
	})
}

// BanIdentity places an explicit admin ban on an identity and hides its
// existing comments. TOTP-gated.
// POST /api/v1/admin/identities/:hash/ban
func (h *Handlers) BanIdentity(c *gin.Context) {
	admin, ok := requireTOTP(c)
	if !ok {
		return
	}
	hash := c.Param("hash")

	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	record, err := h.identities.GetIdentity(c.Request.Context(), hash)
	if err == repository.ErrIdentityNotFound {
		util.RespondNotFound(c, "identity")
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load identity")
		return
	}

	record.IsAdminBanned = true
	record.IsAdminUnbanned = false
	if err := h.identities.UpdateIdentity(c.Request.Context(), record); err != nil {
		util.RespondInternalError(c, "failed to ban identity")
		return
	}

	// An admin ban also pulls the identity's existing comments from
	// public view. Automatic shadow bans never do this retroactively.
	if err := h.comments.HideCommentsForIdentity(c.Request.Context(), hash); err != nil {
		logger.ErrorWithFields("failed to hide comments for banned identity", err,
			logger.WithIdentityHash(hash))
	}

	metrics.Get().BansTotal.WithLabelValues("admin").Inc()
	logger.Log.Info("identity banned by admin",
		zap.String("admin", admin.Username),
		zap.String("reason", req.Reason),
		logger.WithIdentityHash(hash))

	c.JSON(http.StatusOK, gin.H{"banned": true})
}

// UnbanIdentity lifts all bans on an identity. The admin unban flag
// also suppresses automatic bans until an admin bans again. TOTP-gated.
// POST /api/v1/admin/identities/:hash/unban
func (h *Handlers) UnbanIdentity(c *gin.Context) {
	admin, ok := requireTOTP(c)
	if !ok {
		return
	}
	hash := c.Param("hash")

	record, err := h.identities.GetIdentity(c.Request.Context(), hash)
	if err == repository.ErrIdentityNotFound {
		util.RespondNotFound(c, "identity")
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load identity")
		return
	}

	record.IsAdminBanned = false
	record.IsAdminUnbanned = true
	if err := h.identities.UpdateIdentity(c.Request.Context(), record); err != nil {
		util.RespondInternalError(c, "failed to unban identity")
		return
	}

	logger.Log.Info("identity unbanned by admin",
		zap.String("admin", admin.Username),
		logger.WithIdentityHash(hash))

	c.JSON(http.StatusOK, gin.H{"unbanned": true})
}

// ResetCooldown clears an identity's cooldown level. The only path by
// which a cooldown level ever goes down.
// POST /api/v1/admin/identities/:hash/reset-cooldown
func (h *Handlers) ResetCooldown(c *gin.Context) {
	admin, ok := requireTOTP(c)
	if !ok {
		return
	}
	hash := c.Param("hash")

	record, err := h.identities.GetIdentity(c.Request.Context(), hash)
	if err == repository.ErrIdentityNotFound {
		util.RespondNotFound(c, "identity")
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load identity")
		return
	}

	record.CooldownLevel = models.CooldownNone
	record.CooldownEndAt = nil
	if err := h.identities.UpdateIdentity(c.Request.Context(), record); err != nil {
		util.RespondInternalError(c, "failed to reset cooldown")
		return
	}

	logger.Log.Info("cooldown reset by admin",
		zap.String("admin", admin.Username),
		logger.WithIdentityHash(hash))

	c.JSON(http.StatusOK, gin.H{"reset": true})
}

// AdminListComments returns every comment on a post, hidden ones
// included
// GET /api/v1/admin/posts/:post_id/comments
func (h *Handlers) AdminListComments(c *gin.Context) {
	postID := c.Param("post_id")
	limit, offset := pagination(c, defaultCommentPageSize, maxCommentPageSize)

	comments, err := h.comments.ListAllComments(c.Request.Context(), postID, limit, offset)
	if err != nil {
		util.RespondInternalError(c, "failed to load comments")
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// AdminDeleteComment soft-deletes a comment. TOTP-gated.
// DELETE /api/v1/admin/comments/:id
func (h *Handlers) AdminDeleteComment(c *gin.Context) {
	admin, ok := requireTOTP(c)
	if !ok {
		return
	}
	commentID := c.Param("id")

	comment, err := h.comments.GetComment(c.Request.Context(), commentID)
	if err == repository.ErrCommentNotFound {
		util.RespondNotFound(c, "comment")
		return
	}
	if err != nil {
		util.RespondInternalError(c, "failed to load comment")
		return
	}

	if err := h.comments.SoftDeleteComment(c.Request.Context(), commentID); err != nil {
		util.RespondInternalError(c, "failed to delete comment")
		return
	}
	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), comment.PostID)
	}

	logger.Log.Info("comment deleted by admin",
		zap.String("admin", admin.Username),
		zap.String("comment_id", commentID))

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}
