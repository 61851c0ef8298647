package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Project is a named unit of work owned by a user. The name is unique per
// user and matched exactly (case-sensitive).
type Project struct {
	ID              string    `gorm:"primaryKey;size:36" json:"id"`
	UserID          string    `gorm:"uniqueIndex:idx_projects_user_name;not null" json:"user_id"`
	ProjectName     string    `gorm:"uniqueIndex:idx_projects_user_name;not null" json:"project_name"`
	BusinessDetails string    `gorm:"type:text" json:"business_details"`
	Status          string    `gorm:"default:active" json:"status"`
	CreatedAt       time.Time `gorm:"index" json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (p *Project) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}
