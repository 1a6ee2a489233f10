package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/coravoice/call-gateway/internal/timeline"
	apperrors "github.com/coravoice/call-gateway/pkg/errors"
	"github.com/coravoice/call-gateway/pkg/middleware"
)

type AppendEventRequest struct {
	Type      string `json:"type" binding:"required"`
	Role      string `json:"role"`
	Text      string `json:"text"`
	Timestamp string `json:"timestamp"`
}

// AppendEvent adds one entry to the authenticated call's timeline.
func (h *Handler) AppendEvent(c *gin.Context) {
	callID := c.Param("call_id")

	id, ok := middleware.Identity(c)
	if !ok || id.CallID != callID {
		apperrors.Forbidden(c, "token is not bound to this call")
		return
	}

	var req AppendEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, err.Error())
		return
	}

	res, err := h.timeline.Append(c.Request.Context(), callID, timeline.AppendInput{
		Type:      req.Type,
		Role:      req.Role,
		Text:      req.Text,
		Timestamp: req.Timestamp,
	})
	if err != nil {
		if errors.Is(err, timeline.ErrInvalidTimestamp) {
			apperrors.BadRequest(c, "timestamp must be RFC 3339")
			return
		}
		apperrors.InternalError(c, err, h.logger)
		return
	}

	if res.Skipped {
		c.JSON(http.StatusOK, gin.H{"ok": true, "skipped": true})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "seq": res.Seq})
}
