// Package leaderboard ranks contributors by activity over a period.
package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// Ranking metrics.
const (
	MetricContributions = "contributions"
	MetricValidated     = "validated"
)

// Periods accepted by GetLeaderboard.
var Periods = []string{"day", "week", "month", "year", "all_time"}

// ContributionCounter interface for per-owner aggregates.
type ContributionCounter interface {
	CountByOwnerSince(ctx context.Context, language string, since time.Time) ([]repository.OwnerCount, error)
}

// UserRepository interface for user operations.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Entry represents a single entry in a leaderboard.
type Entry struct {
	UserID        string `json:"user_id"`
	Name          string `json:"name"`
	Contributions int64  `json:"contributions"`
	Validated     int64  `json:"validated"`
	Rank          int    `json:"rank"`
}

// Service handles leaderboard generation.
type Service struct {
	counter   ContributionCounter
	userRepo  UserRepository
	supported map[string]bool
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a new leaderboard service with concrete repository types.
func NewService(
	contributionRepo *repository.ContributionRepository,
	userRepo *repository.UserRepository,
	supportedLanguages []string,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(contributionRepo, userRepo, supportedLanguages, log)
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	counter ContributionCounter,
	userRepo UserRepository,
	supportedLanguages []string,
	log *logger.Logger,
) *Service {
	supported := make(map[string]bool, len(supportedLanguages))
	for _, code := range supportedLanguages {
		supported[code] = true
	}
	return &Service{
		counter:   counter,
		userRepo:  userRepo,
		supported: supported,
		now:       time.Now,
		log:       log,
	}
}

// GetLeaderboard ranks contributors in language (all languages when empty)
// for period by metric. A limit of zero returns every entry.
func (s *Service) GetLeaderboard(ctx context.Context, language, period, metric string, limit int) ([]Entry, error) {
	entries, err := s.rank(ctx, language, period, metric)
	if err != nil {
		return nil, err
	}

	// Apply limit
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	// Only the returned entries need display names.
	for i := range entries {
		user, err := s.userRepo.GetByID(ctx, entries[i].UserID)
		if err != nil {
			s.log.Debug().Err(err).Str("user_id", entries[i].UserID).Msg("No profile for leaderboard entry")
			continue
		}
		entries[i].Name = user.Name
	}

	return entries, nil
}

// GetUserRank returns the user's rank, or 0 when they have no contributions in the period.
func (s *Service) GetUserRank(ctx context.Context, userID, language, period, metric string) (int, error) {
	entries, err := s.rank(ctx, language, period, metric)
	if err != nil {
		return 0, err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			return entry.Rank, nil
		}
	}
	return 0, nil
}

// rank counts and orders every contributor without resolving names.
func (s *Service) rank(ctx context.Context, language, period, metric string) ([]Entry, error) {
	if language != "" && !s.supported[language] {
		return nil, fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, language)
	}

	rows, err := s.counter.CountByOwnerSince(ctx, language, periodStart(period, s.now()))
	if err != nil {
		return nil, fmt.Errorf("failed to get contribution counts: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			UserID:        row.OwnerID,
			Contributions: row.Contributions,
			Validated:     row.Validated,
		})
	}

	sortLeaderboard(entries, metric)

	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// sortLeaderboard sorts entries by metric, highest first. Ties keep a stable
// order by user id.
func sortLeaderboard(entries []Entry, metric string) {
	key := func(e Entry) int64 { return e.Contributions }
	if metric == MetricValidated {
		key = func(e Entry) int64 { return e.Validated }
	}

	sort.Slice(entries, func(i, j int) bool {
		ki, kj := key(entries[i]), key(entries[j])
		if ki != kj {
			return ki > kj
		}
		return entries[i].UserID < entries[j].UserID
	})
}

// periodStart calculates the start of a period ending at now.
func periodStart(period string, now time.Time) time.Time {
	switch period {
	case "day":
		return now.Add(-24 * time.Hour)
	case "week":
		return now.Add(-7 * 24 * time.Hour)
	case "month":
		return now.Add(-30 * 24 * time.Hour)
	case "year":
		return now.Add(-365 * 24 * time.Hour)
	default:
		// All time
		return time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)
	}
}
