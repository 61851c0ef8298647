package models

import "time"

// Setting stores generated application values such as the session signing key.
type Setting struct {
	Key       string `gorm:"primaryKey"`
	Value     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (Setting) TableName() string { return "app_configs" }
