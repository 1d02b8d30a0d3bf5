package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/bhashahub/crowdsource/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Every pooled connection would get its own empty :memory: database.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	db.Exec("PRAGMA foreign_keys = ON")

	wrapped := &DB{db}
	if err := wrapped.AutoMigrate(); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	t.Cleanup(func() { _ = wrapped.Close() })
	return wrapped
}

// baseTime is a fixed UTC instant with whole seconds so SQLite string
// comparisons on timestamps stay ordered.
var baseTime = time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)

func createTestContribution(t *testing.T, repo *ContributionRepository, id, owner, language string, kind models.ContributionKind, createdAt time.Time) *models.Contribution {
	t.Helper()

	c := &models.Contribution{
		ID:        id,
		OwnerID:   owner,
		Language:  language,
		Kind:      kind,
		Content:   "sample",
		CreatedAt: createdAt,
	}
	if kind.HasMedia() {
		c.Content = ""
		c.MediaReference = "uploads/" + id
	}
	if err := repo.Create(t.Context(), c); err != nil {
		t.Fatalf("Failed to create test contribution: %v", err)
	}
	return c
}

func createTestChallenge(t *testing.T, repo *ChallengeRepository, id, language string, kind models.ContributionKind, target int, end time.Time) *models.Challenge {
	t.Helper()

	challenge := &models.Challenge{
		ID:          id,
		Title:       "Challenge " + id,
		Language:    language,
		Kind:        kind,
		TargetCount: target,
		StartDate:   baseTime.Add(-24 * time.Hour),
		EndDate:     end,
		IsActive:    true,
	}
	if err := repo.Create(t.Context(), challenge); err != nil {
		t.Fatalf("Failed to create test challenge: %v", err)
	}
	return challenge
}
