package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	prommetrics "github.com/bhashahub/crowdsource/internal/metrics"
	"github.com/bhashahub/crowdsource/internal/models"
)

type uploadRequest struct {
	Kind        models.ContributionKind `json:"kind"`
	ContentType string                  `json:"content_type"`
}

// CreateUpload issues a presigned URL for voice or image media and records
// an upload ticket so the key can later be attached to one contribution.
// POST /api/v1/uploads.
func (h *Handler) CreateUpload(c *gin.Context) {
	id, ok := h.caller(c)
	if !ok {
		return
	}
	if h.uploads == nil {
		h.errorResponse(c, http.StatusServiceUnavailable, "media uploads are not configured")
		return
	}

	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Kind.HasMedia() {
		h.errorResponse(c, http.StatusBadRequest, "kind must be voice or image")
		return
	}

	ctx := c.Request.Context()
	upload, err := h.uploads.PresignUpload(ctx, id.ID, req.Kind, req.ContentType)
	if err != nil {
		h.serviceError(c, err, "Failed to create upload")
		return
	}

	if err := h.tickets.Issue(ctx, upload.ObjectKey, id.ID); err != nil {
		h.serviceError(c, err, "Failed to create upload")
		return
	}

	prommetrics.RecordUploadTicketIssued(string(req.Kind))
	h.log.Debug().
		Str("user_id", id.ID).
		Str("object_key", upload.ObjectKey).
		Msg("Issued upload URL")

	c.JSON(http.StatusCreated, upload)
}
