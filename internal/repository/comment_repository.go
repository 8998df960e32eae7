package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waveground/backend/internal/models"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrDuplicateReport = errors.New("comment already reported by this identity")
)

// CommentRepository handles all database operations for comments and
// reports
type CommentRepository interface {
	CreateComment(ctx context.Context, comment *models.Comment) error
	GetComment(ctx context.Context, commentID string) (*models.Comment, error)
	UpdateComment(ctx context.Context, comment *models.Comment) error
	SoftDeleteComment(ctx context.Context, commentID string) error

	// ListComments returns visible comments for a post plus the
	// viewer's own hidden ones, so a shadow-banned author still sees
	// their comments as posted.
	ListComments(ctx context.Context, postID, viewerHash string, limit, offset int) ([]*models.Comment, error)
	ListAllComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error)
	RecentByIdentity(ctx context.Context, identityHash string, since time.Time) ([]*models.Comment, error)
	HideCommentsForIdentity(ctx context.Context, identityHash string) error

	CreateReport(ctx context.Context, report *models.CommentReport) error
	CountReports(ctx context.Context, commentID string) (int64, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

// CreateComment persists a new comment
func (r *commentRepository) CreateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Create(comment).Error
}

// GetComment fetches a comment by ID
func (r *commentRepository) GetComment(ctx context.Context, commentID string) (*models.Comment, error) {
	var comment models.Comment
	err := r.db.WithContext(ctx).Where("id = ?", commentID).First(&comment).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCommentNotFound
	}

	return &comment, err
}

// UpdateComment persists comment mutations
func (r *commentRepository) UpdateComment(ctx context.Context, comment *models.Comment) error {
	if comment == nil || comment.ID == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Save(comment).Error
}

// SoftDeleteComment marks a comment removed without losing the row
func (r *commentRepository) SoftDeleteComment(ctx context.Context, commentID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", commentID).
		Update("is_deleted", true).Error
}

// ListComments returns a post's comments for one viewer, newest first
func (r *commentRepository) ListComments(ctx context.Context, postID, viewerHash string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ? AND is_deleted = ?", postID, false).
		Where("is_hidden = ? OR identity_hash = ?", false, viewerHash).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, err
}

// ListAllComments returns every comment on a post, hidden included,
// for moderation views
func (r *commentRepository) ListAllComments(ctx context.Context, postID string, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id = ?", postID).
		Order("created_at DESC").
		Limit(limit).Offset(offset).
		Find(&comments).Error
	return comments, err
}

// RecentByIdentity returns an identity's comments since the given
// time, oldest first. Feeds the repeat-abuse and pattern-ban windows.
func (r *commentRepository) RecentByIdentity(ctx context.Context, identityHash string, since time.Time) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("identity_hash = ? AND created_at > ?", identityHash, since).
		Order("created_at ASC").
		Find(&comments).Error
	return comments, err
}

// HideCommentsForIdentity retroactively hides everything an identity
// has posted. Used when a shadow ban lands.
func (r *commentRepository) HideCommentsForIdentity(ctx context.Context, identityHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("identity_hash = ?", identityHash).
		Update("is_hidden", true).Error
}

// CreateReport stores one report, deduped per reporter and comment
func (r *commentRepository) CreateReport(ctx context.Context, report *models.CommentReport) error {
	if report == nil || report.CommentID == "" || report.ReporterHash == "" {
		return ErrInvalidInput
	}

	err := r.db.WithContext(ctx).Create(report).Error
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicateReport
	}
	return err
}

// CountReports counts reports against one comment
func (r *commentRepository) CountReports(ctx context.Context, commentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommentReport{}).
		Where("comment_id = ?", commentID).
		Count(&count).Error
	return count, err
}
