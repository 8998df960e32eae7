package repository

import (
	"context"
	"errors"
	"time"

	"github.com/waveground/backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrIdentityNotFound = errors.New("identity not found")
	ErrInvalidInput     = errors.New("invalid input")
)

// IdentityRepository handles all database operations for commenter
// identity records and their abuse history
type IdentityRepository interface {
	// Identity records
	GetIdentity(ctx context.Context, identityHash string) (*models.CommentIdentity, error)
	GetOrCreateIdentity(ctx context.Context, record *models.CommentIdentity) (*models.CommentIdentity, error)
	UpdateIdentity(ctx context.Context, record *models.CommentIdentity) error
	IncrementReportCount(ctx context.Context, identityHash string) error

	// Moderation queries
	ListFlaggedIdentities(ctx context.Context, limit, offset int) ([]*models.CommentIdentity, error)
	ListBannedIdentities(ctx context.Context, limit, offset int) ([]*models.CommentIdentity, error)

	// Abuse history
	LogAbuse(ctx context.Context, entry *models.CommentAbuseLog) error
	RecentAbuse(ctx context.Context, identityHash string, since time.Time) ([]*models.CommentAbuseLog, error)
	CountHateSpeech(ctx context.Context, identityHash string) (int64, error)
	CountThreats(ctx context.Context, identityHash string) (int64, error)
}

type identityRepository struct {
	db *gorm.DB
}

// NewIdentityRepository creates a new identity repository
func NewIdentityRepository(db *gorm.DB) IdentityRepository {
	return &identityRepository{db: db}
}

// GetIdentity fetches an identity record by hash
func (r *identityRepository) GetIdentity(ctx context.Context, identityHash string) (*models.CommentIdentity, error) {
	var record models.CommentIdentity
	err := r.db.WithContext(ctx).
		Where("identity_hash = ?", identityHash).
		First(&record).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrIdentityNotFound
	}

	return &record, err
}

// GetOrCreateIdentity upserts the record on first contact. On conflict
// the existing row wins; counters are never reset by a re-resolve.
func (r *identityRepository) GetOrCreateIdentity(ctx context.Context, record *models.CommentIdentity) (*models.CommentIdentity, error) {
	if record == nil || record.IdentityHash == "" {
		return nil, ErrInvalidInput
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity_hash"}},
			DoNothing: true,
		}).
		Create(record).Error
	if err != nil {
		return nil, err
	}

	return r.GetIdentity(ctx, record.IdentityHash)
}

// UpdateIdentity persists mutated identity state
func (r *identityRepository) UpdateIdentity(ctx context.Context, record *models.CommentIdentity) error {
	if record == nil || record.IdentityHash == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Save(record).Error
}

// IncrementReportCount bumps the report counter atomically
func (r *identityRepository) IncrementReportCount(ctx context.Context, identityHash string) error {
	return r.db.WithContext(ctx).
		Model(&models.CommentIdentity{}).
		Where("identity_hash = ?", identityHash).
		UpdateColumn("report_count", gorm.Expr("report_count + 1")).Error
}

// ListFlaggedIdentities returns identities with flagged comments for
// the moderation queue, worst first
func (r *identityRepository) ListFlaggedIdentities(ctx context.Context, limit, offset int) ([]*models.CommentIdentity, error) {
	var records []*models.CommentIdentity
	err := r.db.WithContext(ctx).
		Where("flagged_comment_count > 0").
		Order("flagged_comment_count DESC, total_abuse_score DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	return records, err
}

// ListBannedIdentities returns identities with any ban flag set
func (r *identityRepository) ListBannedIdentities(ctx context.Context, limit, offset int) ([]*models.CommentIdentity, error) {
	var records []*models.CommentIdentity
	err := r.db.WithContext(ctx).
		Where("is_auto_banned = ? OR is_shadow_banned = ? OR is_admin_banned = ?", true, true, true).
		Order("updated_at DESC").
		Limit(limit).Offset(offset).
		Find(&records).Error
	return records, err
}

// LogAbuse appends one audit row
func (r *identityRepository) LogAbuse(ctx context.Context, entry *models.CommentAbuseLog) error {
	if entry == nil || entry.IdentityHash == "" {
		return ErrInvalidInput
	}

	return r.db.WithContext(ctx).Create(entry).Error
}

// RecentAbuse returns audit rows since the given time, newest first
func (r *identityRepository) RecentAbuse(ctx context.Context, identityHash string, since time.Time) ([]*models.CommentAbuseLog, error) {
	var entries []*models.CommentAbuseLog
	err := r.db.WithContext(ctx).
		Where("identity_hash = ? AND created_at > ?", identityHash, since).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

// CountHateSpeech counts lifetime hate speech incidents for an identity
func (r *identityRepository) CountHateSpeech(ctx context.Context, identityHash string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommentAbuseLog{}).
		Where("identity_hash = ? AND hate_speech = ?", identityHash, true).
		Count(&count).Error
	return count, err
}

// CountThreats counts lifetime threat incidents for an identity
func (r *identityRepository) CountThreats(ctx context.Context, identityHash string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.CommentAbuseLog{}).
		Where("identity_hash = ? AND threat_detected = ?", identityHash, true).
		Count(&count).Error
	return count, err
}
