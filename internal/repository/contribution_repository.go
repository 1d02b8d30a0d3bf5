package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/bhashahub/crowdsource/internal/models"
)

// ContributionRepository handles contribution persistence.
// There is deliberately no update path for owner, language, kind or creation time.
type ContributionRepository struct {
	db *DB
}

// NewContributionRepository creates a new contribution repository.
func NewContributionRepository(db *DB) *ContributionRepository {
	return &ContributionRepository{db: db}
}

// Create inserts a new contribution.
func (r *ContributionRepository) Create(ctx context.Context, c *models.Contribution) error {
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		return fmt.Errorf("failed to create contribution: %w", err)
	}
	return nil
}

// GetByID retrieves a contribution by ID.
func (r *ContributionRepository) GetByID(ctx context.Context, id string) (*models.Contribution, error) {
	var c models.Contribution
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to get contribution %s: %w", id, translate(err))
	}
	return &c, nil
}

// ListByOwnerAndKind returns every contribution of one kind owned by ownerID.
// An owner without contributions yields an empty slice, not an error.
func (r *ContributionRepository) ListByOwnerAndKind(ctx context.Context, ownerID string, kind models.ContributionKind) ([]models.Contribution, error) {
	contributions := []models.Contribution{}
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND kind = ?", ownerID, kind).
		Order("created_at ASC").
		Find(&contributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list %s contributions for owner %s: %w", kind, ownerID, err)
	}
	return contributions, nil
}

// ListByOwner returns an owner's contributions newest first, optionally filtered by language.
func (r *ContributionRepository) ListByOwner(ctx context.Context, ownerID, language string, limit int) ([]models.Contribution, error) {
	query := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if language != "" {
		query = query.Where("language = ?", language)
	}

	contributions := []models.Contribution{}
	if err := query.Order("created_at DESC").Limit(limit).Find(&contributions).Error; err != nil {
		return nil, fmt.Errorf("failed to list contributions for owner %s: %w", ownerID, err)
	}
	return contributions, nil
}

// ListByLanguage returns the most recent contributions in a language.
func (r *ContributionRepository) ListByLanguage(ctx context.Context, language string, limit int) ([]models.Contribution, error) {
	contributions := []models.Contribution{}
	err := r.db.WithContext(ctx).
		Where("language = ?", language).
		Order("created_at DESC").
		Limit(limit).
		Find(&contributions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list contributions for language %s: %w", language, err)
	}
	return contributions, nil
}

// MarkReviewed records a review outcome on a not-yet-validated contribution.
// It returns false when the contribution is missing or already validated.
func (r *ContributionRepository) MarkReviewed(ctx context.Context, id, reviewerID string, approve bool, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("id = ? AND validated = ?", id, false).
		Updates(map[string]interface{}{
			"validated":   approve,
			"reviewed_by": reviewerID,
			"reviewed_at": at,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to review contribution %s: %w", id, result.Error)
	}
	return result.RowsAffected == 1, nil
}

// languageCount is a scan target for per-language aggregates.
type languageCount struct {
	Language string
	Count    int64
}

func toLanguageMap(rows []languageCount) map[string]int64 {
	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Language] = row.Count
	}
	return counts
}

// CountByLanguageSince counts contributions per language created at or after since.
func (r *ContributionRepository) CountByLanguageSince(ctx context.Context, since time.Time) (map[string]int64, error) {
	var rows []languageCount
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("language, COUNT(*) AS count").
		Where("created_at >= ?", since).
		Group("language").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count contributions by language: %w", err)
	}
	return toLanguageMap(rows), nil
}

// CountContributorsByLanguage counts distinct owners per language.
func (r *ContributionRepository) CountContributorsByLanguage(ctx context.Context) (map[string]int64, error) {
	var rows []languageCount
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("language, COUNT(DISTINCT owner_id) AS count").
		Group("language").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count contributors by language: %w", err)
	}
	return toLanguageMap(rows), nil
}

// OwnerCount is a per-contributor aggregate.
type OwnerCount struct {
	OwnerID       string
	Contributions int64
	Validated     int64
}

// CountByOwnerSince counts contributions and approved contributions per owner
// created at or after since, optionally restricted to one language.
func (r *ContributionRepository) CountByOwnerSince(ctx context.Context, language string, since time.Time) ([]OwnerCount, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Select("owner_id, COUNT(*) AS contributions, SUM(CASE WHEN validated THEN 1 ELSE 0 END) AS validated").
		Where("created_at >= ?", since)
	if language != "" {
		query = query.Where("language = ?", language)
	}

	var rows []OwnerCount
	if err := query.Group("owner_id").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count contributions by owner: %w", err)
	}
	return rows, nil
}
