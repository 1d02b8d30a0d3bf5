package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bhashahub/crowdsource/internal/models"
)

// LanguageRepository handles language metadata.
type LanguageRepository struct {
	db *DB
}

// NewLanguageRepository creates a new language repository.
func NewLanguageRepository(db *DB) *LanguageRepository {
	return &LanguageRepository{db: db}
}

// SeedIfMissing inserts languages that do not exist yet and leaves existing rows untouched.
func (r *LanguageRepository) SeedIfMissing(ctx context.Context, languages []models.LanguageMetadata) (int64, error) {
	if len(languages) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&languages)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to seed languages: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListActive returns active languages ordered by code.
func (r *LanguageRepository) ListActive(ctx context.Context) ([]models.LanguageMetadata, error) {
	languages := []models.LanguageMetadata{}
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("code ASC").
		Find(&languages).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list languages: %w", err)
	}
	return languages, nil
}

// GetByCode retrieves a language by its code.
func (r *LanguageRepository) GetByCode(ctx context.Context, code string) (*models.LanguageMetadata, error) {
	var language models.LanguageMetadata
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&language).Error; err != nil {
		return nil, fmt.Errorf("failed to get language %s: %w", code, translate(err))
	}
	return &language, nil
}

// IncrementTotal bumps a language's contribution counter. Unknown codes are ignored.
func (r *LanguageRepository) IncrementTotal(ctx context.Context, code string) error {
	err := r.db.WithContext(ctx).
		Model(&models.LanguageMetadata{}).
		Where("code = ?", code).
		Updates(map[string]interface{}{
			"total_contributions": gorm.Expr("total_contributions + 1"),
			"updated_at":          time.Now().UTC(),
		}).Error
	if err != nil {
		return fmt.Errorf("failed to increment total for %s: %w", code, err)
	}
	return nil
}

// SetActiveContributors overwrites the contributor count of every listed language.
// Languages absent from counts are reset to zero.
func (r *LanguageRepository) SetActiveContributors(ctx context.Context, counts map[string]int64, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.LanguageMetadata{}).
			Where("1 = 1").
			Update("active_contributors", 0).Error; err != nil {
			return fmt.Errorf("failed to reset contributor counts: %w", err)
		}
		for code, count := range counts {
			if err := tx.Model(&models.LanguageMetadata{}).
				Where("code = ?", code).
				Updates(map[string]interface{}{
					"active_contributors": count,
					"updated_at":          now,
				}).Error; err != nil {
				return fmt.Errorf("failed to set contributor count for %s: %w", code, err)
			}
		}
		return nil
	})
}
