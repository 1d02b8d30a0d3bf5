// Package contributions handles submission, listing and review of contributions.
package contributions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/bhashahub/crowdsource/internal/cache"
	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/repository"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/storage"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// List limits.
const (
	DefaultOwnerLimit    = 50
	DefaultLanguageLimit = 20
	MaxLimit             = 200

	easyMaxChars = 100
)

// ContributionRepository interface for contribution persistence.
type ContributionRepository interface {
	Create(ctx context.Context, c *models.Contribution) error
	GetByID(ctx context.Context, id string) (*models.Contribution, error)
	ListByOwner(ctx context.Context, ownerID, language string, limit int) ([]models.Contribution, error)
	ListByLanguage(ctx context.Context, language string, limit int) ([]models.Contribution, error)
	MarkReviewed(ctx context.Context, id, reviewerID string, approve bool, at time.Time) (bool, error)
}

// LanguageCounter keeps per-language totals.
type LanguageCounter interface {
	IncrementTotal(ctx context.Context, code string) error
}

// TicketRedeemer consumes upload tickets and restores them when a submission
// cannot be stored.
type TicketRedeemer interface {
	Redeem(ctx context.Context, objectKey, ownerID string) error
	Issue(ctx context.Context, objectKey, ownerID string) error
}

// ObjectSizer reports the size of uploaded media.
type ObjectSizer interface {
	ObjectSize(ctx context.Context, key string) (int64, error)
}

// ProgressRecorder advances challenge participations for a new contribution.
type ProgressRecorder interface {
	RecordContribution(ctx context.Context, c *models.Contribution) error
}

// SubmitRequest is the user-supplied part of a new contribution.
type SubmitRequest struct {
	Language        string                  `json:"language"`
	Kind            models.ContributionKind `json:"kind"`
	Content         string                  `json:"content,omitempty"`
	MediaReference  string                  `json:"media_reference,omitempty"`
	DurationSeconds float64                 `json:"duration_seconds,omitempty"`
	Transcript      string                  `json:"transcript,omitempty"`
	Difficulty      string                  `json:"difficulty,omitempty"`
}

// Service handles contributions.
type Service struct {
	repo           ContributionRepository
	languages      LanguageCounter
	tickets        TicketRedeemer
	objects        ObjectSizer
	progress       ProgressRecorder
	supported      map[string]bool
	maxUploadBytes int64
	now            func() time.Time
	log            *logger.Logger
}

// NewService creates a new contribution service.
func NewService(
	repo *repository.ContributionRepository,
	languages *repository.LanguageRepository,
	tickets *cache.TicketStore,
	objects *storage.S3Storage,
	progress ProgressRecorder,
	supportedLanguages []string,
	maxUploadBytes int64,
	log *logger.Logger,
) *Service {
	var sizer ObjectSizer
	if objects != nil {
		sizer = objects
	}
	return NewServiceWithInterfaces(repo, languages, tickets, sizer, progress, supportedLanguages, maxUploadBytes, log)
}

// NewServiceWithInterfaces creates a new contribution service with interface dependencies (useful for testing).
// objects and progress may be nil.
func NewServiceWithInterfaces(
	repo ContributionRepository,
	languages LanguageCounter,
	tickets TicketRedeemer,
	objects ObjectSizer,
	progress ProgressRecorder,
	supportedLanguages []string,
	maxUploadBytes int64,
	log *logger.Logger,
) *Service {
	supported := make(map[string]bool, len(supportedLanguages))
	for _, code := range supportedLanguages {
		supported[code] = true
	}

	return &Service{
		repo:           repo,
		languages:      languages,
		tickets:        tickets,
		objects:        objects,
		progress:       progress,
		supported:      supported,
		maxUploadBytes: maxUploadBytes,
		now:            time.Now,
		log:            log,
	}
}

// Submit validates and stores a new contribution owned by ownerID.
func (s *Service) Submit(ctx context.Context, ownerID string, req SubmitRequest) (*models.Contribution, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	c := &models.Contribution{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Language:   req.Language,
		Kind:       req.Kind,
		Difficulty: req.Difficulty,
		CreatedAt:  s.now().UTC(),
	}

	switch req.Kind {
	case models.KindText:
		c.Content = strings.TrimSpace(req.Content)
		c.WordCount = len(strings.Fields(c.Content))
		if c.Difficulty == "" {
			c.Difficulty = defaultDifficulty(c.Content)
		}
	case models.KindVoice, models.KindImage:
		size, err := s.claimMedia(ctx, ownerID, req.MediaReference)
		if err != nil {
			return nil, err
		}
		c.MediaReference = req.MediaReference
		c.SizeBytes = size
		if req.Kind == models.KindVoice {
			c.DurationSeconds = req.DurationSeconds
			c.Transcript = strings.TrimSpace(req.Transcript)
		}
	}

	if err := s.repo.Create(ctx, c); err != nil {
		if c.MediaReference != "" {
			s.restoreTicket(ctx, ownerID, c.MediaReference)
		}
		return nil, fmt.Errorf("failed to save contribution: %w", err)
	}

	prommetrics.RecordContributionSubmitted(c.Language, string(c.Kind))
	s.log.Info().
		Str("contribution_id", c.ID).
		Str("owner_id", ownerID).
		Str("language", c.Language).
		Str("kind", string(c.Kind)).
		Msg("Contribution submitted")

	// Counters and challenge progress are best effort; the contribution itself is stored.
	if err := s.languages.IncrementTotal(ctx, c.Language); err != nil {
		s.log.Warn().Err(err).Str("language", c.Language).Msg("Failed to update language total")
	}
	if s.progress != nil {
		if err := s.progress.RecordContribution(ctx, c); err != nil {
			s.log.Warn().Err(err).Str("contribution_id", c.ID).Msg("Failed to record challenge progress")
		}
	}

	return c, nil
}

func (s *Service) validate(req SubmitRequest) error {
	if !s.supported[req.Language] {
		return fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, req.Language)
	}
	if !req.Kind.Valid() {
		return fmt.Errorf("%w: unknown kind %q", service.ErrInvalidInput, req.Kind)
	}

	switch req.Difficulty {
	case "", models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
	default:
		return fmt.Errorf("%w: unknown difficulty %q", service.ErrInvalidInput, req.Difficulty)
	}

	if req.Kind == models.KindText {
		if strings.TrimSpace(req.Content) == "" {
			return fmt.Errorf("%w: text contributions require content", service.ErrInvalidInput)
		}
		if req.MediaReference != "" {
			return fmt.Errorf("%w: text contributions cannot carry media", service.ErrInvalidInput)
		}
		return nil
	}

	if req.MediaReference == "" {
		return fmt.Errorf("%w: %s contributions require a media reference", service.ErrInvalidInput, req.Kind)
	}
	if !strings.HasPrefix(req.MediaReference, string(req.Kind)+"/") {
		return fmt.Errorf("%w: media reference is not a %s upload", service.ErrInvalidInput, req.Kind)
	}
	if strings.TrimSpace(req.Content) != "" {
		return fmt.Errorf("%w: %s contributions cannot carry inline content", service.ErrInvalidInput, req.Kind)
	}
	if req.DurationSeconds < 0 || (req.Kind == models.KindImage && req.DurationSeconds != 0) {
		return fmt.Errorf("%w: invalid duration", service.ErrInvalidInput)
	}
	return nil
}

// claimMedia checks the object was uploaded and consumes its ticket.
func (s *Service) claimMedia(ctx context.Context, ownerID, key string) (int64, error) {
	if !storage.OwnedBy(key, ownerID) {
		return 0, fmt.Errorf("%w: media reference not issued to caller", service.ErrUploadTicket)
	}

	var size int64
	if s.objects != nil {
		var err error
		size, err = s.objects.ObjectSize(ctx, key)
		if errors.Is(err, storage.ErrObjectNotFound) {
			return 0, fmt.Errorf("%w: media has not been uploaded", service.ErrInvalidInput)
		}
		if err != nil {
			return 0, fmt.Errorf("failed to check uploaded media: %w", err)
		}
		if s.maxUploadBytes > 0 && size > s.maxUploadBytes {
			return 0, fmt.Errorf("%w: media exceeds %d bytes", service.ErrInvalidInput, s.maxUploadBytes)
		}
	}

	if err := s.tickets.Redeem(ctx, key, ownerID); err != nil {
		if errors.Is(err, cache.ErrTicketNotFound) || errors.Is(err, cache.ErrTicketOwner) {
			return 0, fmt.Errorf("%w: %v", service.ErrUploadTicket, err)
		}
		return 0, fmt.Errorf("failed to redeem upload ticket: %w", err)
	}
	return size, nil
}

// restoreTicket re-issues a redeemed ticket so the uploaded media can be
// submitted again after a failed save.
func (s *Service) restoreTicket(ctx context.Context, ownerID, key string) {
	if err := s.tickets.Issue(context.WithoutCancel(ctx), key, ownerID); err != nil {
		s.log.Error().Err(err).Str("object_key", key).Str("owner_id", ownerID).Msg("Failed to restore upload ticket")
	}
}

func defaultDifficulty(content string) string {
	if utf8.RuneCountInString(content) <= easyMaxChars {
		return models.DifficultyEasy
	}
	return models.DifficultyMedium
}

// Review approves or rejects a contribution. Reviewers cannot review their own
// contributions and approved contributions cannot be reviewed again.
func (s *Service) Review(ctx context.Context, contributionID string, reviewer *models.User, approve bool) (*models.Contribution, error) {
	if reviewer == nil || !models.CanReview(reviewer.Role) {
		return nil, fmt.Errorf("%w: reviewer role required", service.ErrForbidden)
	}

	c, err := s.repo.GetByID(ctx, contributionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("contribution %s: %w", contributionID, service.ErrNotFound)
		}
		return nil, err
	}
	if c.OwnerID == reviewer.ID {
		return nil, fmt.Errorf("%w: cannot review own contribution", service.ErrForbidden)
	}
	if c.Validated {
		return nil, service.ErrAlreadyValidated
	}

	now := s.now().UTC()
	updated, err := s.repo.MarkReviewed(ctx, contributionID, reviewer.ID, approve, now)
	if err != nil {
		return nil, err
	}
	if !updated {
		// Approved concurrently by someone else.
		return nil, service.ErrAlreadyValidated
	}

	outcome := "rejected"
	if approve {
		outcome = "approved"
	}
	prommetrics.RecordContributionReviewed(outcome)
	s.log.Info().
		Str("contribution_id", contributionID).
		Str("reviewer_id", reviewer.ID).
		Str("outcome", outcome).
		Msg("Contribution reviewed")

	c.Validated = approve
	c.ReviewedBy = &reviewer.ID
	c.ReviewedAt = &now
	return c, nil
}

// ListMine returns the owner's contributions, newest first.
func (s *Service) ListMine(ctx context.Context, ownerID, language string, limit int) ([]models.Contribution, error) {
	return s.repo.ListByOwner(ctx, ownerID, language, clampLimit(limit, DefaultOwnerLimit))
}

// ListByLanguage returns recent contributions in a supported language.
func (s *Service) ListByLanguage(ctx context.Context, language string, limit int) ([]models.Contribution, error) {
	if !s.supported[language] {
		return nil, fmt.Errorf("%w: unsupported language %q", service.ErrInvalidInput, language)
	}
	return s.repo.ListByLanguage(ctx, language, clampLimit(limit, DefaultLanguageLimit))
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
