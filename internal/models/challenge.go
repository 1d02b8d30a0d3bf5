package models

import (
	"time"
)

// Challenge is a time-boxed collection goal for one language and kind.
type Challenge struct {
	ID          string           `gorm:"primaryKey;size:36" json:"id"`
	Title       string           `gorm:"size:255;not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Language    string           `gorm:"size:16;not null;index" json:"language"`
	Kind        ContributionKind `gorm:"size:16;not null" json:"kind"`
	TargetCount int              `gorm:"not null" json:"target_count"`
	StartDate   time.Time        `gorm:"not null" json:"start_date"`
	EndDate     time.Time        `gorm:"not null;index" json:"end_date"`
	IsActive    bool             `gorm:"not null;default:true;index" json:"is_active"`
	Prompt      string           `gorm:"type:text" json:"prompt,omitempty"`
	CreatedBy   string           `gorm:"size:255" json:"created_by,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// TableName specifies the table name for Challenge model.
func (Challenge) TableName() string {
	return "challenges"
}

// IsOpen reports whether the challenge accepts joins and progress at now.
func (c *Challenge) IsOpen(now time.Time) bool {
	return c.IsActive && now.Before(c.EndDate)
}

// Accepts reports whether a contribution counts towards this challenge.
func (c *Challenge) Accepts(contribution *Contribution) bool {
	return c.Language == contribution.Language && c.Kind == contribution.Kind
}

// ChallengeParticipation tracks one user's progress in a challenge.
type ChallengeParticipation struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	UserID             string     `gorm:"size:255;not null;uniqueIndex:idx_participation_user_challenge,priority:1" json:"user_id"`
	ChallengeID        string     `gorm:"size:36;not null;uniqueIndex:idx_participation_user_challenge,priority:2;index" json:"challenge_id"`
	Challenge          Challenge  `gorm:"foreignKey:ChallengeID" json:"challenge,omitempty"`
	ContributionsCount int        `gorm:"not null;default:0" json:"contributions_count"`
	Completed          bool       `gorm:"not null;default:false" json:"completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// TableName specifies the table name for ChallengeParticipation model.
func (ChallengeParticipation) TableName() string {
	return "challenge_participations"
}
