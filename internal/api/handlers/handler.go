// Package handlers provides REST API handlers for contributions, challenges,
// languages, uploads and user profiles.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhashahub/crowdsource/internal/api/middleware"
	"github.com/bhashahub/crowdsource/internal/cache"
	"github.com/bhashahub/crowdsource/internal/models"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/service/challenges"
	"github.com/bhashahub/crowdsource/internal/service/contributions"
	"github.com/bhashahub/crowdsource/internal/service/languages"
	"github.com/bhashahub/crowdsource/internal/service/users"
	"github.com/bhashahub/crowdsource/internal/storage"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// ContributionService interface for contribution operations.
type ContributionService interface {
	Submit(ctx context.Context, ownerID string, req contributions.SubmitRequest) (*models.Contribution, error)
	Review(ctx context.Context, contributionID string, reviewer *models.User, approve bool) (*models.Contribution, error)
	ListMine(ctx context.Context, ownerID, language string, limit int) ([]models.Contribution, error)
	ListByLanguage(ctx context.Context, language string, limit int) ([]models.Contribution, error)
}

// ChallengeService interface for challenge operations.
type ChallengeService interface {
	Create(ctx context.Context, actor *models.User, req challenges.CreateRequest) (*models.Challenge, error)
	Get(ctx context.Context, challengeID string) (*challenges.Detail, error)
	Join(ctx context.Context, userID, challengeID string) (*models.ChallengeParticipation, error)
	ListActive(ctx context.Context, language string) ([]models.Challenge, error)
	ListForUser(ctx context.Context, userID string) ([]models.ChallengeParticipation, error)
}

// LanguageService interface for the language catalog.
type LanguageService interface {
	ListActive(ctx context.Context) ([]models.LanguageMetadata, error)
	Get(ctx context.Context, code string) (*models.LanguageMetadata, error)
}

// UserService interface for profile operations.
type UserService interface {
	Sync(ctx context.Context, id users.Identity) (*models.User, error)
	SetPreferredLanguage(ctx context.Context, userID, language string) (*models.User, error)
	List(ctx context.Context, role string) ([]models.User, error)
}

// UploadPresigner issues presigned media upload URLs.
type UploadPresigner interface {
	PresignUpload(ctx context.Context, ownerID string, kind models.ContributionKind, contentType string) (*storage.PresignedUpload, error)
}

// TicketIssuer records which user an upload key was issued to.
type TicketIssuer interface {
	Issue(ctx context.Context, objectKey, ownerID string) error
}

// HealthChecker reports whether a backing store is reachable.
type HealthChecker interface {
	Health() error
}

// Handler handles REST API requests.
type Handler struct {
	contributions ContributionService
	challenges    ChallengeService
	languages     LanguageService
	users         UserService
	uploads       UploadPresigner
	tickets       TicketIssuer
	health        HealthChecker
	log           *logger.Logger
}

// NewHandler creates a new handler.
func NewHandler(
	contributionService *contributions.Service,
	challengeService *challenges.Service,
	languageService *languages.Service,
	userService *users.Service,
	uploads *storage.S3Storage,
	tickets *cache.TicketStore,
	health HealthChecker,
	log *logger.Logger,
) *Handler {
	var presigner UploadPresigner
	if uploads != nil {
		presigner = uploads
	}
	return NewHandlerWithInterfaces(contributionService, challengeService, languageService, userService, presigner, tickets, health, log)
}

// NewHandlerWithInterfaces creates a new handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	contributionService ContributionService,
	challengeService ChallengeService,
	languageService LanguageService,
	userService UserService,
	uploads UploadPresigner,
	tickets TicketIssuer,
	health HealthChecker,
	log *logger.Logger,
) *Handler {
	return &Handler{
		contributions: contributionService,
		challenges:    challengeService,
		languages:     languageService,
		users:         userService,
		uploads:       uploads,
		tickets:       tickets,
		health:        health,
		log:           log,
	}
}

// Health reports liveness and database reachability.
// GET /api/v1/health.
func (h *Handler) Health(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Health(); err != nil {
			h.log.Error().Err(err).Msg("Health check failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     "database unavailable",
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Helper functions

// caller returns the authenticated identity or writes a 401.
func (h *Handler) caller(c *gin.Context) (users.Identity, bool) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
	}
	return id, ok
}

// actor builds the acting user from the token claims.
func actor(id users.Identity) *models.User {
	return &models.User{ID: id.ID, Email: id.Email, Name: id.Name, Role: id.Role}
}

// parseLimit extracts and validates the limit query parameter. Zero means the service default.
func (h *Handler) parseLimit(c *gin.Context) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > contributions.MaxLimit {
		return 0, fmt.Errorf("limit cannot exceed %d", contributions.MaxLimit)
	}
	return limit, nil
}

// serviceError maps a service error onto a response. Unexpected errors are logged and hidden.
func (h *Handler) serviceError(c *gin.Context, err error, msg string) {
	var status int
	switch {
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrUploadTicket),
		errors.Is(err, storage.ErrContentType):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrAlreadyValidated):
		status = http.StatusConflict
	case errors.Is(err, service.ErrChallengeClosed):
		status = http.StatusGone
	default:
		h.log.Error().Err(err).Str("path", c.FullPath()).Msg(msg)
		h.errorResponse(c, http.StatusInternalServerError, msg)
		return
	}
	h.errorResponse(c, status, err.Error())
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
