package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type profileUpdate struct {
	PreferredLanguage string `json:"preferred_language"`
}

// GetMe returns the caller's profile, creating it on first use.
// GET /api/v1/me.
func (h *Handler) GetMe(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	user, err := h.users.Sync(c.Request.Context(), id)
	if err != nil {
		h.serviceError(c, err, "Failed to load profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateMe sets the caller's preferred language.
// PATCH /api/v1/me.
func (h *Handler) UpdateMe(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}

	var req profileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := c.Request.Context()
	if _, err := h.users.Sync(ctx, id); err != nil {
		h.serviceError(c, err, "Failed to load profile")
		return
	}

	user, err := h.users.SetPreferredLanguage(ctx, id.ID, req.PreferredLanguage)
	if err != nil {
		h.serviceError(c, err, "Failed to update profile")
		return
	}

	c.JSON(http.StatusOK, user)
}

// ListUsers returns registered users, optionally filtered by role.
// GET /api/v1/users?role=reviewer.
func (h *Handler) ListUsers(c *gin.Context) {
	list, err := h.users.List(c.Request.Context(), c.Query("role"))
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve users")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":        list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// ListLanguages returns the active language catalog.
// GET /api/v1/languages.
func (h *Handler) ListLanguages(c *gin.Context) {
	list, err := h.languages.ListActive(c.Request.Context())
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve languages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"languages":    list,
		"total":        len(list),
		"generated_at": time.Now().UTC(),
	})
}

// GetLanguage returns one catalog entry with its counters.
// GET /api/v1/languages/:code.
func (h *Handler) GetLanguage(c *gin.Context) {
	language, err := h.languages.Get(c.Request.Context(), c.Param("code"))
	if err != nil {
		h.serviceError(c, err, "Failed to retrieve language")
		return
	}

	c.JSON(http.StatusOK, language)
}
