// Package languages serves the language catalog and per-language statistics.
package languages

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bhashahub/crowdsource/internal/mattermost"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// LanguageRepository interface for language metadata.
type LanguageRepository interface {
	SeedIfMissing(ctx context.Context, languages []models.LanguageMetadata) (int64, error)
	ListActive(ctx context.Context) ([]models.LanguageMetadata, error)
	GetByCode(ctx context.Context, code string) (*models.LanguageMetadata, error)
	SetActiveContributors(ctx context.Context, counts map[string]int64, now time.Time) error
}

// ContributionCounter aggregates contributions per language.
type ContributionCounter interface {
	CountContributorsByLanguage(ctx context.Context) (map[string]int64, error)
	CountByLanguageSince(ctx context.Context, since time.Time) (map[string]int64, error)
}

// Service handles the language catalog.
type Service struct {
	repo          LanguageRepository
	contributions ContributionCounter
	now           func() time.Time
	log           *logger.Logger
}

// NewService creates a new language service.
func NewService(repo *repository.LanguageRepository, contributions *repository.ContributionRepository, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repo, contributions, log)
}

// NewServiceWithInterfaces creates a new language service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo LanguageRepository, contributions ContributionCounter, log *logger.Logger) *Service {
	return &Service{
		repo:          repo,
		contributions: contributions,
		now:           time.Now,
		log:           log,
	}
}

// Seed inserts catalog entries that do not exist yet. Existing counters are kept.
func (s *Service) Seed(ctx context.Context, catalog []models.LanguageMetadata) error {
	inserted, err := s.repo.SeedIfMissing(ctx, catalog)
	if err != nil {
		return err
	}
	s.log.Info().
		Int("catalog", len(catalog)).
		Int64("inserted", inserted).
		Msg("Language catalog seeded")
	return nil
}

// ListActive returns the active languages.
func (s *Service) ListActive(ctx context.Context) ([]models.LanguageMetadata, error) {
	return s.repo.ListActive(ctx)
}

// Get returns one language by code.
func (s *Service) Get(ctx context.Context, code string) (*models.LanguageMetadata, error) {
	language, err := s.repo.GetByCode(ctx, code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("language %s: %w", code, service.ErrNotFound)
		}
		return nil, err
	}
	return language, nil
}

// RefreshActiveContributors recounts distinct contributors for every language.
func (s *Service) RefreshActiveContributors(ctx context.Context) error {
	counts, err := s.contributions.CountContributorsByLanguage(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.SetActiveContributors(ctx, counts, s.now().UTC()); err != nil {
		return err
	}

	for code, count := range counts {
		prommetrics.SetLanguageActiveContributors(code, count)
	}
	s.log.Debug().Int("languages", len(counts)).Msg("Refreshed active contributor counts")
	return nil
}

// ActivitySince returns contribution counts per active language since the
// given time, busiest first.
func (s *Service) ActivitySince(ctx context.Context, since time.Time) ([]mattermost.LanguageActivity, error) {
	counts, err := s.contributions.CountByLanguageSince(ctx, since)
	if err != nil {
		return nil, err
	}
	catalog, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}

	activity := make([]mattermost.LanguageActivity, 0, len(catalog))
	for _, l := range catalog {
		activity = append(activity, mattermost.LanguageActivity{
			Code:          l.Code,
			Name:          l.Name,
			Contributions: counts[l.Code],
		})
	}
	sort.SliceStable(activity, func(i, j int) bool {
		if activity[i].Contributions != activity[j].Contributions {
			return activity[i].Contributions > activity[j].Contributions
		}
		return activity[i].Code < activity[j].Code
	})
	return activity, nil
}
