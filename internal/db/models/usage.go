package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RequestData is the input captured for one generation attempt.
type RequestData struct {
	WebsiteStructure string `json:"website_structure"`
	ProjectName      string `json:"project_name"`
	BusinessDetails  string `json:"business_details"`
}

// ResponseData mirrors what the workflow reported back.
type ResponseData struct {
	OutputLink   string `json:"output_link,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ProjectUsage is one generation request. Status starts at pending and is
// moved to ready or error by the workflow callback only.
type ProjectUsage struct {
	ID               string                           `gorm:"primaryKey;size:36" json:"id"`
	UserID           string                           `gorm:"index;not null" json:"user_id"`
	ProjectID        string                           `gorm:"index;not null" json:"project_id"`
	Project          *Project                         `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	RequestType      string                           `json:"request_type"`
	RequestData      datatypes.JSONType[RequestData]  `json:"request_data"`
	ResponseData     datatypes.JSONType[ResponseData] `json:"response_data"`
	Status           string                           `gorm:"index;not null;default:pending" json:"status"`
	WebsiteStructure string                           `gorm:"type:text" json:"website_structure"`
	OutputLink       string                           `json:"output_link,omitempty"`
	ErrorMessage     string                           `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt        time.Time                        `gorm:"index" json:"created_at"`
	UpdatedAt        time.Time                        `json:"updated_at"`
}

func (ProjectUsage) TableName() string { return "project_usage" }

func (u *ProjectUsage) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return nil
}
