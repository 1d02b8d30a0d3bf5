package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bhashahub/crowdsource/internal/service/challenges"
)

// ListChallenges returns open challenges.
// GET /api/v1/challenges?language=hi.
func (h *Handler) ListChallenges(c *gin.Context) {
	list, err := h.challenges.ListActive(c.Request.Context(), c.Query("language"))
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"challenges":   list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// GetChallenge returns one challenge with its participant count.
// GET /api/v1/challenges/:id.
func (h *Handler) GetChallenge(c *gin.Context) {
	detail, err := h.challenges.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve challenge")
		return
	}

	c.JSON(http.StatusOK, detail)
}

// CreateChallenge starts a new challenge.
// POST /api/v1/challenges.
func (h *Handler) CreateChallenge(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req challenges.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	challenge, err := h.challenges.Create(c.Request.Context(), actor(id), req)
	if err != nil {
		h.serviceError(c, err, "Failed to create challenge")
		return
	}

	c.JSON(http.StatusCreated, challenge)
}

// JoinChallenge enrolls the caller in a challenge.
// POST /api/v1/challenges/:id/join.
func (h *Handler) JoinChallenge(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	participation, err := h.challenges.Join(c.Request.Context(), id.ID, c.Param("id"))
	if err != nil {
		h.serviceError(c, err, "Failed to join challenge")
		return
	}

	c.JSON(http.StatusOK, participation)
}

// ListMyChallenges returns the caller's challenge participations.
// GET /api/v1/me/challenges.
func (h *Handler) ListMyChallenges(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	list, err := h.challenges.ListForUser(c.Request.Context(), id.ID)
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve challenges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"participations": list,
		"total":          len(list),
		"generated_at":   time.Now().UTC(),
	})
}
