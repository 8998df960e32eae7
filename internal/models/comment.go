package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Comment represents an anonymous comment on a post
type Comment struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	PostID string `gorm:"not null;index" json:"post_id"`

	// IdentityHash ties the comment to an anonymous commenter without
	// storing anything directly identifying.
	IdentityHash string          `gorm:"not null;index" json:"-"`
	Identity     CommentIdentity `gorm:"foreignKey:IdentityHash;references:IdentityHash" json:"-"`

	// Username is the deterministic anonymous display name derived from
	// the identity hash.
	Username string `gorm:"not null" json:"username"`

	// Content as displayed. Profanity that passed the score threshold is
	// masked in place; the pre-mask text is not retained.
	Content string `gorm:"type:text;not null" json:"content"`

	// AbuseScore from the most recent scoring pass (submit or edit)
	AbuseScore int `gorm:"default:0" json:"-"`

	// IsHidden marks shadow-banned content. Hidden comments are returned
	// only to the commenter who wrote them.
	IsHidden bool `gorm:"default:false;index" json:"-"`

	// Edit tracking
	IsEdited bool       `gorm:"default:false" json:"is_edited"`
	EditedAt *time.Time `json:"edited_at,omitempty"`

	IsDeleted bool `gorm:"default:false" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// CooldownLevel enumerates the escalating posting-delay tiers
type CooldownLevel int

const (
	CooldownNone CooldownLevel = iota
	CooldownShort
	CooldownMedium
	CooldownLong
	CooldownVeryLong
	CooldownExtreme
)

// CommentIdentity is the per-commenter abuse ledger, keyed by the
// composite identity hash. All moderation state hangs off this record.
type CommentIdentity struct {
	IdentityHash    string `gorm:"primaryKey;type:varchar(64)" json:"identity_hash"`
	HashedIP        string `gorm:"index" json:"-"`
	HashedUserAgent string `json:"-"`

	// Username is assigned on first comment and reused for every
	// subsequent comment from the same identity.
	Username string `gorm:"uniqueIndex" json:"username"`

	// Cumulative counters
	TotalComments       int `gorm:"default:0" json:"total_comments"`
	TotalAbuseScore     int `gorm:"default:0" json:"total_abuse_score"`
	FlaggedCommentCount int `gorm:"default:0" json:"flagged_comment_count"`
	ReportCount         int `gorm:"default:0" json:"report_count"`

	// Cooldown state machine
	CooldownLevel CooldownLevel `gorm:"default:0" json:"cooldown_level"`
	CooldownEndAt *time.Time    `json:"cooldown_end_at,omitempty"`

	// Ban flags. IsAdminUnbanned overrides automatic bans until the next
	// automatic decision fires; IsAdminBanned overrides everything.
	IsAdminBanned   bool `gorm:"default:false" json:"is_admin_banned"`
	IsAdminUnbanned bool `gorm:"default:false" json:"is_admin_unbanned"`

	IsAutoBanned  bool       `gorm:"default:false;index" json:"is_auto_banned"`
	AutoBanReason string     `gorm:"type:text" json:"auto_ban_reason,omitempty"`
	AutoBannedAt  *time.Time `json:"auto_banned_at,omitempty"`

	IsShadowBanned  bool       `gorm:"default:false;index" json:"is_shadow_banned"`
	ShadowBanReason string     `gorm:"type:text" json:"shadow_ban_reason,omitempty"`
	ShadowBannedAt  *time.Time `json:"shadow_banned_at,omitempty"`

	LastCommentAt *time.Time `json:"last_comment_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName for identity records
func (CommentIdentity) TableName() string {
	return "comment_identities"
}

// AbuseLogAction records what the pipeline did with a scored comment
type AbuseLogAction string

const (
	AbuseActionAllowed   AbuseLogAction = "allowed"
	AbuseActionCooldown  AbuseLogAction = "cooldown"
	AbuseActionShadowBan AbuseLogAction = "shadow_ban"
	AbuseActionAutoBan   AbuseLogAction = "auto_ban"
	AbuseActionRejected  AbuseLogAction = "rejected"
)

// CommentAbuseLog is the append-only audit trail for scored submissions.
// One row per submit or edit that produced a nonzero score or a
// moderation action.
type CommentAbuseLog struct {
	ID           string  `gorm:"primaryKey;type:uuid" json:"id"`
	CommentID    *string `gorm:"type:uuid;index" json:"comment_id,omitempty"`
	IdentityHash string  `gorm:"not null;index" json:"identity_hash"`

	Score        int            `gorm:"not null" json:"score"`
	MatchedWords []string       `gorm:"serializer:json" json:"matched_words"`
	Breakdown    ScoreBreakdown `gorm:"serializer:json" json:"breakdown"`
	Action       AbuseLogAction `gorm:"not null;index" json:"action"`

	// ThreatDetected is kept as a column so the ban engine can count
	// recent threats without unpacking breakdowns.
	ThreatDetected bool `gorm:"default:false" json:"threat_detected"`
	HateSpeech     bool `gorm:"default:false" json:"hate_speech"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName for abuse log entries
func (CommentAbuseLog) TableName() string {
	return "comment_abuse_logs"
}

// ScoreBreakdown itemizes an abuse score by category. Tier 1 and 2
// entries stay zero under current weights but are kept so audit rows
// show which categories were evaluated.
type ScoreBreakdown struct {
	Tier1     int `json:"tier1,omitempty"`
	Tier2     int `json:"tier2,omitempty"`
	Tier3     int `json:"tier3,omitempty"`
	Sexual    int `json:"sexual,omitempty"`
	Threats   int `json:"threats,omitempty"`
	Spam      int `json:"spam,omitempty"`
	EmojiSpam int `json:"emoji_spam,omitempty"`
	EmojiOnly int `json:"emoji_only,omitempty"`
}

// CommentReport is a user report against a visible comment
type CommentReport struct {
	ID        string  `gorm:"primaryKey;type:uuid" json:"id"`
	CommentID string  `gorm:"not null;index:idx_report_dedupe,unique" json:"comment_id"`
	Comment   Comment `gorm:"foreignKey:CommentID" json:"-"`

	// ReporterHash is the reporting identity. The composite unique index
	// with CommentID keeps one report per identity per comment.
	ReporterHash string `gorm:"not null;index:idx_report_dedupe,unique" json:"-"`
	Reason       string `gorm:"type:text" json:"reason"`

	CreatedAt time.Time `json:"created_at"`
}

// TableName for comment reports
func (CommentReport) TableName() string {
	return "comment_reports"
}

func generateUUID() string {
	return uuid.New().String()
}

// BeforeCreate hooks for GORM
func (c *Comment) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = generateUUID()
	}
	return nil
}

func (l *CommentAbuseLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == "" {
		l.ID = generateUUID()
	}
	return nil
}

func (r *CommentReport) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = generateUUID()
	}
	return nil
}
