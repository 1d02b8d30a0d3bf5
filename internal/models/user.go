package models

import (
	"time"
)

// User roles.
const (
	RoleAdmin    = "admin"
	RoleReviewer = "reviewer"
	RoleUser     = "user"
)

// User represents an authenticated contributor. ID is the identity provider subject.
type User struct {
	ID                string    `gorm:"primaryKey;size:255" json:"id"`
	Email             string    `gorm:"size:255;index" json:"email"`
	Name              string    `gorm:"size:255" json:"name"`
	Role              string    `gorm:"size:50;not null;default:user" json:"role"`
	PreferredLanguage string    `gorm:"size:16" json:"preferred_language,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// CanReview reports whether the role may validate other users' contributions.
func CanReview(role string) bool {
	return role == RoleAdmin || role == RoleReviewer
}
