package models

import (
	"time"

	"gorm.io/gorm"
)

// AdminUser is a moderator account. Admin auth is the only
// credentialed surface in the service; commenters stay anonymous.
type AdminUser struct {
	ID       string `gorm:"primaryKey;type:uuid" json:"id"`
	Username string `gorm:"uniqueIndex;not null" json:"username"`

	PasswordHash string `gorm:"type:text;not null" json:"-"`

	// TOTP step-up for destructive moderation actions
	TwoFactorEnabled bool    `gorm:"default:false" json:"two_factor_enabled"`
	TwoFactorSecret  *string `gorm:"type:text" json:"-"`

	LastLoginAt *time.Time `json:"last_login_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName for admin accounts
func (AdminUser) TableName() string {
	return "admin_users"
}

func (a *AdminUser) BeforeCreate(tx *gorm.DB) error {
	if a.ID == "" {
		a.ID = generateUUID()
	}
	return nil
}
