package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhashahub/crowdsource/internal/service/contributions"
)

// reviewRequest is the body of a review decision.
type reviewRequest struct {
	Approve *bool `json:"approve"`
}

// SubmitContribution stores a new contribution for the caller.
// POST /api/v1/contributions.
func (h *Handler) SubmitContribution(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req contributions.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	// Keeps the display name used by challenge notifications current.
	if _, err := h.users.Sync(ctx, id); err != nil {
		h.log.Warn().Err(err).Str("user_id", id.ID).Msg("Failed to sync profile")
	}

	contribution, err := h.contributions.Submit(ctx, id.ID, req)
	if err != nil {
		h.serviceError(c, err, "Failed to submit contribution")
		return
	}

	c.JSON(http.StatusCreated, contribution)
}

// ListMyContributions returns the caller's contributions, newest first.
// GET /api/v1/me/contributions?language=hi&limit=50.
func (h *Handler) ListMyContributions(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	limit, err := h.parseLimit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.contributions.ListMine(c.Request.Context(), id.ID, c.Query("language"), limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve contributions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"contributions": list,
		"total":         len(list),
		"generated_at":  time.Now().UTC(),
	})
}

// ListLanguageContributions returns recent contributions in one language.
// GET /api/v1/languages/:code/contributions?limit=20.
func (h *Handler) ListLanguageContributions(c *gin.Context) {
	language := c.Param("code")
	limit, err := h.parseLimit(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	list, err := h.contributions.ListByLanguage(c.Request.Context(), language, limit)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve contributions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"language":      language,
		"contributions": list,
		"total":         len(list),
		"generated_at":  time.Now().UTC(),
	})
}

// ReviewContribution approves or rejects a contribution.
// POST /api/v1/contributions/:id/review.
func (h *Handler) ReviewContribution(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Approve == nil {
		h.errorResponse(c, http.StatusBadRequest, "approve must be true or false")
		return
	}

	contribution, err := h.contributions.Review(c.Request.Context(), c.Param("id"), actor(id), *req.Approve)
	if err != nil {
		h.serviceError(c, err, "Failed to review contribution")
		return
	}

	c.JSON(http.StatusOK, contribution)
}
