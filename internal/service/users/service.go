// Package users keeps profiles in sync with authenticated identities.
package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// UserRepository interface for user persistence.
type UserRepository interface {
	Upsert(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdatePreferredLanguage(ctx context.Context, id, language string) error
	List(ctx context.Context, role string) ([]models.User, error)
}

// Identity is what the authentication layer knows about the caller.
type Identity struct {
	ID    string
	Email string
	Name  string
	Role  string
}

// Service handles user profiles.
type Service struct {
	repo      UserRepository
	supported map[string]bool
	log       *logger.Logger
}

// NewService creates a new user service.
func NewService(repo *repository.UserRepository, supportedLanguages []string, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repo, supportedLanguages, log)
}

// NewServiceWithInterfaces creates a new user service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo UserRepository, supportedLanguages []string, log *logger.Logger) *Service {
	supported := make(map[string]bool, len(supportedLanguages))
	for _, code := range supportedLanguages {
		supported[code] = true
	}
	return &Service{repo: repo, supported: supported, log: log}
}

// Sync upserts the caller's profile from their identity and returns the stored profile.
func (s *Service) Sync(ctx context.Context, id Identity) (*models.User, error) {
	role := id.Role
	switch role {
	case models.RoleAdmin, models.RoleReviewer:
	default:
		role = models.RoleUser
	}

	now := time.Now().UTC()
	err := s.repo.Upsert(ctx, &models.User{
		ID:        id.ID,
		Email:     id.Email,
		Name:      id.Name,
		Role:      role,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id.ID)
}

// SetPreferredLanguage updates the user's preferred language.
func (s *Service) SetPreferredLanguage(ctx context.Context, userID, language string) (*models.User, error) {
	if !s.supported[language] {
		return nil, fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, language)
	}
	if err := s.repo.UpdatePreferredLanguage(ctx, userID, language); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("user %s: %w", userID, service.ErrNotFound)
		}
		return nil, err
	}

	s.log.Debug().Str("user_id", userID).Str("language", language).Msg("Preferred language updated")
	return s.repo.GetByID(ctx, userID)
}

// List returns all users, or only those with role when it is non-empty.
func (s *Service) List(ctx context.Context, role string) ([]models.User, error) {
	switch role {
	case "", models.RoleAdmin, models.RoleReviewer, models.RoleUser:
	default:
		return nil, fmt.Errorf("%w: unknown role %q", service.ErrInvalidInput, role)
	}
	return s.repo.List(ctx, role)
}
