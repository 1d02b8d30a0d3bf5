// Package challenges manages time-boxed contribution challenges and user progress.
package challenges

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bhashahub/crowdsource/internal/mattermost"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/seed"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// MaxDurationDays bounds how long a challenge may run.
const MaxDurationDays = 365

// ChallengeRepository interface for challenge persistence.
type ChallengeRepository interface {
	Create(ctx context.Context, challenge *models.Challenge) error
	GetByID(ctx context.Context, id string) (*models.Challenge, error)
	ListActive(ctx context.Context, language string, now time.Time) ([]models.Challenge, error)
	ExpireEnded(ctx context.Context, now time.Time) (int64, error)
	Join(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipation, error)
	ListParticipationsByUser(ctx context.Context, userID string) ([]models.ChallengeParticipation, error)
	ListOpenParticipations(ctx context.Context, userID, language string, kind models.ContributionKind, now time.Time) ([]models.ChallengeParticipation, error)
	IncrementProgress(ctx context.Context, participationID uint, target int, now time.Time) (bool, error)
	CountParticipants(ctx context.Context, challengeID string) (int64, error)
}

// UserRepository resolves display names for notifications.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
}

// Notifier announces completed challenges.
type Notifier interface {
	SendChallengeCompleted(ctx context.Context, completion mattermost.ChallengeCompletion) error
}

// CreateRequest describes a new challenge.
type CreateRequest struct {
	Title        string                  `json:"title"`
	Description  string                  `json:"description"`
	Language     string                  `json:"language"`
	Kind         models.ContributionKind `json:"kind"`
	TargetCount  int                     `json:"target_count"`
	DurationDays int                     `json:"duration_days"`
	Prompt       string                  `json:"prompt"`
}

// Detail is a challenge with its participant count.
type Detail struct {
	models.Challenge
	Participants int64 `json:"participants"`
	Open         bool  `json:"open"`
}

// Service handles challenge operations.
type Service struct {
	repo      ChallengeRepository
	users     UserRepository
	notifier  Notifier
	supported map[string]bool
	now       func() time.Time
	log       *logger.Logger
}

// NewService creates a new challenge service.
func NewService(
	repo *repository.ChallengeRepository,
	users *repository.UserRepository,
	notifier *mattermost.Client,
	supportedLanguages []string,
	log *logger.Logger,
) *Service {
	var n Notifier
	if notifier != nil {
		n = notifier
	}
	return NewServiceWithInterfaces(repo, users, n, supportedLanguages, log)
}

// NewServiceWithInterfaces creates a new challenge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	repo ChallengeRepository,
	users UserRepository,
	notifier Notifier,
	supportedLanguages []string,
	log *logger.Logger,
) *Service {
	supported := make(map[string]bool, len(supportedLanguages))
	for _, code := range supportedLanguages {
		supported[code] = true
	}

	return &Service{
		repo:      repo,
		users:     users,
		notifier:  notifier,
		supported: supported,
		now:       time.Now,
		log:       log,
	}
}

// Create starts a challenge now that runs for DurationDays. Only admins may create challenges.
func (s *Service) Create(ctx context.Context, actor *models.User, req CreateRequest) (*models.Challenge, error) {
	if actor == nil || actor.Role != models.RoleAdmin {
		return nil, fmt.Errorf("%w: admin role required", service.ErrForbidden)
	}
	return s.create(ctx, actor.ID, req)
}

func (s *Service) create(ctx context.Context, createdBy string, req CreateRequest) (*models.Challenge, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	challenge := &models.Challenge{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Language:    req.Language,
		Kind:        req.Kind,
		TargetCount: req.TargetCount,
		StartDate:   now,
		EndDate:     now.AddDate(0, 0, req.DurationDays),
		IsActive:    true,
		Prompt:      req.Prompt,
		CreatedBy:   createdBy,
	}

	if err := s.repo.Create(ctx, challenge); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.log.Info().
		Str("challenge_id", challenge.ID).
		Str("language", challenge.Language).
		Str("kind", string(challenge.Kind)).
		Time("end_date", challenge.EndDate).
		Msg("Challenge created")

	return challenge, nil
}

func (s *Service) validate(req CreateRequest) error {
	switch {
	case strings.TrimSpace(req.Title) == "":
		return fmt.Errorf("%w: title is required", service.ErrInvalidInput)
	case !s.supported[req.Language]:
		return fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, req.Language)
	case !req.Kind.Valid():
		return fmt.Errorf("%w: unknown kind %q", service.ErrInvalidInput, req.Kind)
	case req.TargetCount <= 0:
		return fmt.Errorf("%w: target_count must be positive", service.ErrInvalidInput)
	case req.DurationDays <= 0 || req.DurationDays > MaxDurationDays:
		return fmt.Errorf("%w: duration_days must be between 1 and %d", service.ErrInvalidInput, MaxDurationDays)
	}
	return nil
}

// SeedIfEmpty creates challenges from templates when no challenge is running.
func (s *Service) SeedIfEmpty(ctx context.Context, templates []seed.Challenge) (int, error) {
	active, err := s.repo.ListActive(ctx, "", s.now().UTC())
	if err != nil {
		return 0, err
	}
	if len(active) > 0 {
		return 0, nil
	}

	created := 0
	for _, t := range templates {
		if !s.supported[t.Language] {
			continue
		}
		_, err := s.create(ctx, "system", CreateRequest{
			Title:        t.Title,
			Description:  t.Description,
			Language:     t.Language,
			Kind:         t.Kind,
			TargetCount:  t.TargetCount,
			DurationDays: t.DurationDays,
			Prompt:       t.Prompt,
		})
		if err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// Join enrolls userID in an open challenge. Joining twice returns the existing participation.
func (s *Service) Join(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipation, error) {
	challenge, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, service.ErrNotFound)
		}
		return nil, err
	}
	if !challenge.IsOpen(s.now()) {
		return nil, service.ErrChallengeClosed
	}

	participation, err := s.repo.Join(ctx, userID, challengeID)
	if err != nil {
		return nil, err
	}

	prommetrics.RecordChallengeJoin()
	s.log.Debug().
		Str("user_id", userID).
		Str("challenge_id", challengeID).
		Msg("Joined challenge")

	return participation, nil
}

// Get returns a challenge, open or not, with its participant count.
func (s *Service) Get(ctx context.Context, challengeID string) (*Detail, error) {
	challenge, err := s.repo.GetByID(ctx, challengeID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("challenge %s: %w", challengeID, service.ErrNotFound)
		}
		return nil, err
	}

	participants, err := s.repo.CountParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Challenge:    *challenge,
		Participants: participants,
		Open:         challenge.IsOpen(s.now()),
	}, nil
}

// ListActive returns open challenges, optionally for one language.
func (s *Service) ListActive(ctx context.Context, language string) ([]models.Challenge, error) {
	return s.repo.ListActive(ctx, language, s.now().UTC())
}

// ListForUser returns the user's participations with challenge details.
func (s *Service) ListForUser(ctx context.Context, userID string) ([]models.ChallengeParticipation, error) {
	return s.repo.ListParticipationsByUser(ctx, userID)
}

// RecordContribution advances every open participation of the owner whose
// challenge matches the contribution's language and kind.
func (s *Service) RecordContribution(ctx context.Context, c *models.Contribution) error {
	now := s.now().UTC()
	participations, err := s.repo.ListOpenParticipations(ctx, c.OwnerID, c.Language, c.Kind, now)
	if err != nil {
		return err
	}

	var errs []error
	for i := range participations {
		p := &participations[i]
		if !p.Challenge.Accepts(c) {
			continue
		}

		completed, err := s.repo.IncrementProgress(ctx, p.ID, p.Challenge.TargetCount, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if completed {
			s.onCompleted(ctx, c.OwnerID, &p.Challenge)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) onCompleted(ctx context.Context, userID string, challenge *models.Challenge) {
	prommetrics.RecordChallengeCompleted(challenge.Language)
	s.log.Info().
		Str("user_id", userID).
		Str("challenge_id", challenge.ID).
		Msg("Challenge completed")

	if s.notifier == nil {
		return
	}

	name := userID
	if user, err := s.users.GetByID(ctx, userID); err == nil && user.Name != "" {
		name = user.Name
	}

	err := s.notifier.SendChallengeCompleted(ctx, mattermost.ChallengeCompletion{
		UserName:       name,
		ChallengeTitle: challenge.Title,
		Language:       challenge.Language,
		Kind:           string(challenge.Kind),
		TargetCount:    challenge.TargetCount,
	})
	if err != nil {
		prommetrics.RecordSchedulerNotificationFailed("challenge_completed")
		s.log.Warn().Err(err).Str("challenge_id", challenge.ID).Msg("Failed to send challenge completion")
		return
	}
	prommetrics.RecordSchedulerNotificationSent("challenge_completed")
}

// ExpireEnded deactivates challenges whose end date has passed.
func (s *Service) ExpireEnded(ctx context.Context) (int64, error) {
	count, err := s.repo.ExpireEnded(ctx, s.now().UTC())
	if err != nil {
		return 0, err
	}
	if count > 0 {
		prommetrics.RecordChallengesExpired(count)
		s.log.Info().Int64("count", count).Msg("Expired challenges")
	}
	return count, nil
}
