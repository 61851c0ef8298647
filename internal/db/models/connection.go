package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GoogleDriveConnection stores the OAuth token set for one Google account.
// There is at most one row per GoogleEmail; reconnecting overwrites it.
type GoogleDriveConnection struct {
	ID             string     `gorm:"primaryKey;size:36" json:"id"`
	UserID         string     `gorm:"index;not null" json:"user_id"`
	ClientID       string     `json:"client_id"`
	AccessToken    string     `gorm:"not null" json:"-"`
	RefreshToken   string     `json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`
	Scope          string     `json:"scope,omitempty"`
	GoogleEmail    string     `gorm:"uniqueIndex;not null" json:"google_email"`
	IsActive       bool       `gorm:"default:true" json:"is_active"`
	ErrorMessage   string     `json:"error_message,omitempty"`
	LastUsed       *time.Time `json:"last_used,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (GoogleDriveConnection) TableName() string { return "google_drive_connections" }

func (c *GoogleDriveConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	return nil
}
