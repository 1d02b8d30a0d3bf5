// Package dashboard provides REST API handlers for the contributor dashboard.
// It exposes endpoints for per-user statistics, leaderboards and the badge catalog.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhashahub/crowdsource/internal/api/middleware"
	"github.com/bhashahub/crowdsource/internal/service"
	"github.com/bhashahub/crowdsource/internal/service/leaderboard"
	"github.com/bhashahub/crowdsource/internal/service/stats"
	"github.com/bhashahub/crowdsource/pkg/logger"
)

// StatsService interface for statistics computation.
type StatsService interface {
	ComputeStats(ctx context.Context, userID string) (*stats.Snapshot, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetLeaderboard(ctx context.Context, language, period, metric string, limit int) ([]leaderboard.Entry, error)
	GetUserRank(ctx context.Context, userID, language, period, metric string) (int, error)
}

// Handler handles dashboard API requests.
type Handler struct {
	statsService       StatsService
	leaderboardService LeaderboardService
	timeout            time.Duration
	log                *logger.Logger
}

// NewHandler creates a new dashboard handler. timeout bounds each stats
// computation; zero means the request context alone applies.
func NewHandler(aggregator *stats.Aggregator, leaderboardService *leaderboard.Service, timeout time.Duration, log *logger.Logger) *Handler {
	return NewHandlerWithInterfaces(aggregator, leaderboardService, timeout, log)
}

// NewHandlerWithInterfaces creates a new dashboard handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(statsService StatsService, leaderboardService LeaderboardService, timeout time.Duration, log *logger.Logger) *Handler {
	return &Handler{
		statsService:       statsService,
		leaderboardService: leaderboardService,
		timeout:            timeout,
		log:                log,
	}
}

// GetMyStats returns the caller's statistics.
// GET /api/v1/me/stats.
func (h *Handler) GetMyStats(c *gin.Context) {
	id, ok := middleware.IdentityFrom(c)
	if !ok {
		h.errorResponse(c, http.StatusUnauthorized, "Authentication required")
		return
	}
	h.respondWithStats(c, id.ID)
}

// GetUserStats returns statistics for any user.
// GET /api/v1/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID := strings.TrimSpace(c.Param("id"))
	if userID == "" {
		h.errorResponse(c, http.StatusBadRequest, "user id is required")
		return
	}
	h.respondWithStats(c, userID)
}

func (h *Handler) respondWithStats(c *gin.Context, userID string) {
	ctx := c.Request.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	snapshot, err := h.statsService.ComputeStats(ctx, userID)
	if err != nil {
		switch {
		case errors.Is(err, stats.ErrInvalidUser):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, context.DeadlineExceeded):
			h.log.Warn().Err(err).Str("user_id", userID).Msg("Stats computation timed out")
			h.errorResponse(c, http.StatusGatewayTimeout, "stats unavailable")
		case errors.Is(err, stats.ErrRetrieval):
			h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to retrieve contributions for stats")
			h.errorResponse(c, http.StatusServiceUnavailable, "stats unavailable")
		default:
			h.log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute user stats")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to compute user statistics")
		}
		return
	}

	h.log.Debug().
		Str("user_id", userID).
		Int("total_contributions", snapshot.TotalContributions).
		Msg("Retrieved user stats")

	c.JSON(http.StatusOK, statsResponse{Snapshot: snapshot, GeneratedAt: time.Now().UTC()})
}

type statsResponse struct {
	*stats.Snapshot
	GeneratedAt time.Time `json:"generated_at"`
}

// GetBadgeCatalog returns every badge a contributor can earn, in award order.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog := stats.Catalog()

	c.JSON(http.StatusOK, gin.H{
		"badges":       catalog,
		"total_badges": len(catalog),
		"generated_at": time.Now().UTC(),
	})
}

// GetLeaderboard returns contributors ranked over a period.
// GET /api/v1/leaderboard?language=hi&period=week&metric=contributions&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	language := c.Query("language")
	period := c.DefaultQuery("period", "all_time")
	metric := c.DefaultQuery("metric", leaderboard.MetricContributions)
	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// Validate parameters
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.validateMetric(metric); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.GetLeaderboard(c.Request.Context(), language, period, metric, limit)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Str("language", language).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	response := gin.H{
		"leaderboard":   entries,
		"language":      language,
		"period":        period,
		"metric":        metric,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	}

	// Include the caller's own rank when authenticated.
	if id, ok := middleware.IdentityFrom(c); ok {
		rank, err := h.leaderboardService.GetUserRank(c.Request.Context(), id.ID, language, period, metric)
		if err != nil {
			h.log.Warn().Err(err).Str("user_id", id.ID).Msg("Failed to get user rank")
		} else {
			response["my_rank"] = rank
		}
	}

	c.JSON(http.StatusOK, response)
}

// Helper functions

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	if limit > 100 {
		return 0, fmt.Errorf("limit cannot exceed 100")
	}

	return limit, nil
}

// validatePeriod validates the period parameter.
func (h *Handler) validatePeriod(period string) error {
	for _, p := range leaderboard.Periods {
		if p == period {
			return nil
		}
	}
	return fmt.Errorf("invalid period: %s (valid: %s)", period, strings.Join(leaderboard.Periods, ", "))
}

// validateMetric validates the metric parameter.
func (h *Handler) validateMetric(metric string) error {
	switch metric {
	case leaderboard.MetricContributions, leaderboard.MetricValidated:
		return nil
	}
	return fmt.Errorf("invalid metric: %s (valid: %s, %s)", metric, leaderboard.MetricContributions, leaderboard.MetricValidated)
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
