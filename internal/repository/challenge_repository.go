package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bhashahub/crowdsource/internal/models"
)

// ChallengeRepository handles challenges and their participations.
type ChallengeRepository struct {
	db *DB
}

// NewChallengeRepository creates a new challenge repository.
func NewChallengeRepository(db *DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a new challenge.
func (r *ChallengeRepository) Create(ctx context.Context, challenge *models.Challenge) error {
	if err := r.db.WithContext(ctx).Create(challenge).Error; err != nil {
		return fmt.Errorf("failed to create challenge: %w", err)
	}
	return nil
}

// GetByID retrieves a challenge by ID.
func (r *ChallengeRepository) GetByID(ctx context.Context, id string) (*models.Challenge, error) {
	var challenge models.Challenge
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&challenge).Error; err != nil {
		return nil, fmt.Errorf("failed to get challenge %s: %w", id, translate(err))
	}
	return &challenge, nil
}

// ListActive returns challenges still open at now, soonest ending first.
func (r *ChallengeRepository) ListActive(ctx context.Context, language string, now time.Time) ([]models.Challenge, error) {
	query := r.db.WithContext(ctx).Where("is_active = ? AND end_date > ?", true, now)
	if language != "" {
		query = query.Where("language = ?", language)
	}

	challenges := []models.Challenge{}
	if err := query.Order("end_date ASC").Find(&challenges).Error; err != nil {
		return nil, fmt.Errorf("failed to list active challenges: %w", err)
	}
	return challenges, nil
}

// ExpireEnded deactivates challenges whose end date has passed.
func (r *ChallengeRepository) ExpireEnded(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Challenge{}).
		Where("is_active = ? AND end_date <= ?", true, now).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire challenges: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Join creates a participation unless one already exists, and returns the stored row.
func (r *ChallengeRepository) Join(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipation, error) {
	participation := models.ChallengeParticipation{
		UserID:      userID,
		ChallengeID: challengeID,
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Omit("Challenge").
		Create(&participation).Error
	if err != nil {
		return nil, fmt.Errorf("failed to join challenge %s: %w", challengeID, err)
	}
	return r.GetParticipation(ctx, userID, challengeID)
}

// GetParticipation retrieves a user's participation in a challenge.
func (r *ChallengeRepository) GetParticipation(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipation, error) {
	var participation models.ChallengeParticipation
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ? AND challenge_id = ?", userID, challengeID).
		First(&participation).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get participation: %w", translate(err))
	}
	return &participation, nil
}

// ListParticipationsByUser returns a user's participations with their challenges, newest first.
func (r *ChallengeRepository) ListParticipationsByUser(ctx context.Context, userID string) ([]models.ChallengeParticipation, error) {
	participations := []models.ChallengeParticipation{}
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&participations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list participations for %s: %w", userID, err)
	}
	return participations, nil
}

// ListOpenParticipations returns the user's uncompleted participations in open
// challenges matching language and kind.
func (r *ChallengeRepository) ListOpenParticipations(ctx context.Context, userID, language string, kind models.ContributionKind, now time.Time) ([]models.ChallengeParticipation, error) {
	var participations []models.ChallengeParticipation
	err := r.db.WithContext(ctx).
		Preload("Challenge").
		Joins("JOIN challenges ON challenges.id = challenge_participations.challenge_id").
		Where("challenge_participations.user_id = ? AND challenge_participations.completed = ?", userID, false).
		Where("challenges.language = ? AND challenges.kind = ?", language, kind).
		Where("challenges.is_active = ? AND challenges.end_date > ?", true, now).
		Find(&participations).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open participations for %s: %w", userID, err)
	}
	return participations, nil
}

// IncrementProgress adds one contribution to a participation and marks it
// completed once target is reached. completedNow is true only for the
// increment that crossed the target.
func (r *ChallengeRepository) IncrementProgress(ctx context.Context, participationID uint, target int, now time.Time) (completedNow bool, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ChallengeParticipation{}).
			Where("id = ? AND completed = ?", participationID, false).
			Update("contributions_count", gorm.Expr("contributions_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		result = tx.Model(&models.ChallengeParticipation{}).
			Where("id = ? AND completed = ? AND contributions_count >= ?", participationID, false, target).
			Updates(map[string]interface{}{
				"completed":    true,
				"completed_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		completedNow = result.RowsAffected == 1
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to record challenge progress: %w", err)
	}
	return completedNow, nil
}

// CountParticipants returns the number of users who joined a challenge.
func (r *ChallengeRepository) CountParticipants(ctx context.Context, challengeID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.ChallengeParticipation{}).
		Where("challenge_id = ?", challengeID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count participants: %w", err)
	}
	return count, nil
}
