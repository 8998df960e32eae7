package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/waveground/backend/internal/errors"
	"github.com/waveground/backend/internal/moderation"
	"github.com/waveground/backend/internal/util"
)

// SubmitCommentRequest is the request body for posting a comment
type SubmitCommentRequest struct {
	Content string `json:"content" binding:"required"`
}

// ReportCommentRequest is the request body for reporting a comment
type ReportCommentRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

const (
	defaultCommentPageSize = 50
	maxCommentPageSize     = 200

	reportsPerWindow = 10
	reportWindow     = time.Minute
)

// checkCommentBudget enforces the per-identity submission budget before
// the pipeline runs. The bucket is keyed on the basic hash (IP plus user
// agent) so rotating session IDs does not buy a fresh budget.
func (h *Handlers) checkCommentBudget(c *gin.Context) bool {
	key := "comment:" + h.resolver.BasicHash(signalsFromRequest(c))
	window := time.Duration(h.cfg.CommentWindowMs) * time.Millisecond
	if !h.limiter.Check(key, h.cfg.CommentsPerWindow, window) {
		state := h.limiter.State(key)
		util.RespondWithAPIError(c, errors.RateLimited(state.RetryAfterMs))
		return false
	}
	return true
}

// GetComments returns the comments on a post, oldest first. A shadow
// banned viewer sees their own hidden comments mixed in; nobody else
// does.
// GET /api/v1/posts/:post_id/comments
func (h *Handlers) GetComments(c *gin.Context) {
	postID := c.Param("post_id")
	if postID == "" {
		util.RespondBadRequest(c, "post_id is required")
		return
	}
	limit, offset := pagination(c, defaultCommentPageSize, maxCommentPageSize)

	viewerHash := h.service.ResolveViewer(signalsFromRequest(c))

	// The cached list is the public view. It is only safe to serve when
	// the viewer has nothing hidden of their own, so shadow banned
	// viewers always go to the database.
	useCache := h.cache != nil && offset == 0 && limit == defaultCommentPageSize
	if useCache {
		record, err := h.identities.GetIdentity(c.Request.Context(), viewerHash)
		shadowViewer := err == nil && record.IsShadowBanned
		if !shadowViewer {
			if cached := h.cache.GetPublicList(c.Request.Context(), postID); cached != nil {
				c.JSON(http.StatusOK, gin.H{"comments": cached, "count": len(cached)})
				return
			}
		} else {
			useCache = false
		}
	}

	comments, err := h.comments.ListComments(c.Request.Context(), postID, viewerHash, limit, offset)
	if err != nil {
		util.RespondInternalError(c, "failed to load comments")
		return
	}

	if useCache {
		hasHidden := false
		for _, cm := range comments {
			if cm.IsHidden {
				hasHidden = true
				break
			}
		}
		if !hasHidden {
			h.cache.SetPublicList(c.Request.Context(), postID, comments)
		}
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments, "count": len(comments)})
}

// SubmitComment posts a new anonymous comment on a post
// POST /api/v1/posts/:post_id/comments
func (h *Handlers) SubmitComment(c *gin.Context) {
	postID := c.Param("post_id")
	if postID == "" {
		util.RespondBadRequest(c, "post_id is required")
		return
	}

	var req SubmitCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "content is required")
		return
	}

	if !h.checkCommentBudget(c) {
		return
	}

	result, apiErr := h.service.Submit(c.Request.Context(), signalsFromRequest(c), postID, req.Content)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), postID)
	}

	c.JSON(http.StatusCreated, submitResponse(result))
}

// EditComment rewrites an existing comment. Only the identity that
// posted it may edit, and the edit runs the full scoring pipeline again.
// PUT /api/v1/comments/:id
func (h *Handlers) EditComment(c *gin.Context) {
	commentID := c.Param("id")

	var req SubmitCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "content is required")
		return
	}

	if !h.checkCommentBudget(c) {
		return
	}

	result, apiErr := h.service.Edit(c.Request.Context(), signalsFromRequest(c), commentID, req.Content)
	if apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	if h.cache != nil {
		h.cache.Invalidate(c.Request.Context(), result.Comment.PostID)
	}

	c.JSON(http.StatusOK, submitResponse(result))
}

// ReportComment files a community report against a comment. Duplicate
// reports from the same identity are absorbed silently so the endpoint
// leaks nothing about prior reports.
// POST /api/v1/comments/:id/report
func (h *Handlers) ReportComment(c *gin.Context) {
	commentID := c.Param("id")

	var req ReportCommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		util.RespondBadRequest(c, "reason is required")
		return
	}

	key := "report:" + h.resolver.BasicHash(signalsFromRequest(c))
	if !h.limiter.Check(key, reportsPerWindow, reportWindow) {
		state := h.limiter.State(key)
		util.RespondWithAPIError(c, errors.RateLimited(state.RetryAfterMs))
		return
	}

	if apiErr := h.service.Report(c.Request.Context(), signalsFromRequest(c), commentID, req.Reason); apiErr != nil {
		util.RespondWithAPIError(c, apiErr)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reported": true})
}

// submitResponse shapes the acceptance bundle for the client. The shadow
// ban verdict is deliberately absent; the author must not learn it.
func submitResponse(result *moderation.SubmitResult) gin.H {
	resp := gin.H{
		"comment":  result.Comment,
		"username": result.Comment.Username,
	}
	if result.Cooldown.IsActive {
		resp["cooldown"] = gin.H{
			"level":        int(result.Cooldown.Level),
			"remaining_ms": result.Cooldown.RemainingMs,
			"ends_at":      result.Cooldown.EndAt,
		}
	}
	return resp
}
