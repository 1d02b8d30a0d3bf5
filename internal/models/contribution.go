// Package models defines domain models for the language contribution platform.
package models

import (
	"time"
)

// ContributionKind discriminates the payload a contribution carries.
type ContributionKind string

// Contribution kinds.
const (
	KindText  ContributionKind = "text"
	KindVoice ContributionKind = "voice"
	KindImage ContributionKind = "image"
)

// AllContributionKinds lists every kind the store partitions records by.
var AllContributionKinds = []ContributionKind{KindText, KindVoice, KindImage}

// Valid reports whether k is a known kind.
func (k ContributionKind) Valid() bool {
	switch k {
	case KindText, KindVoice, KindImage:
		return true
	}
	return false
}

// HasMedia reports whether contributions of this kind reference stored media.
func (k ContributionKind) HasMedia() bool {
	return k == KindVoice || k == KindImage
}

// UnknownLanguage is the breakdown bucket for records without a recognised language.
const UnknownLanguage = "unknown"

// Contribution is a unit of user-submitted language data.
// OwnerID, Language, Kind and CreatedAt never change after creation.
type Contribution struct {
	ID              string           `gorm:"primaryKey;size:36" json:"id"`
	OwnerID         string           `gorm:"not null;size:255;index:idx_contrib_owner_kind,priority:1" json:"owner_id"`
	Language        string           `gorm:"size:16;index" json:"language"`
	Kind            ContributionKind `gorm:"not null;size:16;index:idx_contrib_owner_kind,priority:2" json:"kind"`
	Content         string           `gorm:"type:text" json:"content,omitempty"`
	MediaReference  string           `gorm:"size:512" json:"media_reference,omitempty"`
	SizeBytes       int64            `gorm:"default:0" json:"size_bytes,omitempty"`
	DurationSeconds float64          `gorm:"default:0" json:"duration_seconds,omitempty"`
	Transcript      string           `gorm:"type:text" json:"transcript,omitempty"`
	WordCount       int              `gorm:"default:0" json:"word_count,omitempty"`
	Difficulty      string           `gorm:"size:20" json:"difficulty,omitempty"`
	Validated       bool             `gorm:"not null;default:false" json:"validated"`
	ReviewedBy      *string          `gorm:"size:255" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time       `json:"reviewed_at,omitempty"`
	CreatedAt       time.Time        `gorm:"not null;index" json:"created_at"`
}

// TableName specifies the table name for Contribution model.
func (Contribution) TableName() string {
	return "contributions"
}

// Difficulty levels.
const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)
