package models

import (
	"time"
)

// LanguageMetadata describes a supported language and its running totals.
type LanguageMetadata struct {
	Code               string    `gorm:"primaryKey;size:16" json:"code"`
	Name               string    `gorm:"size:100;not null" json:"name"`
	NativeName         string    `gorm:"size:100" json:"native_name"`
	TotalContributions int64     `gorm:"not null;default:0" json:"total_contributions"`
	ActiveContributors int64     `gorm:"not null;default:0" json:"active_contributors"`
	IsActive           bool      `gorm:"not null;default:true;index" json:"is_active"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// TableName specifies the table name for LanguageMetadata model.
func (LanguageMetadata) TableName() string {
	return "language_metadata"
}
