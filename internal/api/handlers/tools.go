package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/coravoice/call-gateway/internal/tools"
	apperrors "github.com/coravoice/call-gateway/pkg/errors"
	"github.com/coravoice/call-gateway/pkg/metrics"
	"github.com/coravoice/call-gateway/pkg/middleware"
)

type ExecuteToolRequest struct {
	CallID         string                 `json:"call_id" binding:"required"`
	TenantID       string                 `json:"tenant_id" binding:"required"`
	Tool           string                 `json:"tool" binding:"required"`
	Args           map[string]interface{} `json:"args"`
	IdempotencyKey string                 `json:"idempotency_key"`
}

// ExecuteTool dispatches one tool invocation for the authenticated call.
// Tool outcomes, including failures, come back 200 with an envelope; only
// authorization problems surface as HTTP errors.
func (h *Handler) ExecuteTool(c *gin.Context) {
	start := time.Now()
	var req ExecuteToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, err.Error())
		return
	}

	id, ok := middleware.Identity(c)
	if !ok {
		apperrors.Unauthorized(c, "missing call identity")
		return
	}

	res, err := h.dispatcher.Dispatch(c.Request.Context(), id, tools.Request{
		CallID:         req.CallID,
		TenantID:       req.TenantID,
		Tool:           req.Tool,
		Args:           req.Args,
		IdempotencyKey: req.IdempotencyKey,
	})
	if err != nil {
		metrics.RecordRequest("/api/tools/execute", false, time.Since(start))
		if errors.Is(err, tools.ErrForbidden) {
			apperrors.Forbidden(c, "token is not bound to this call and tenant")
			return
		}
		apperrors.InternalError(c, err, h.logger)
		return
	}

	metrics.RecordRequest("/api/tools/execute", res.Envelope.OK, time.Since(start))
	metrics.RecordToolCall(req.Tool, res.Envelope.OK, time.Since(start))

	if res.Replayed {
		c.Header("Idempotent-Replay", "true")
	}
	// Raw is the canonical serialization; replays must match the original
	// byte for byte.
	c.Data(http.StatusOK, "application/json", res.Raw)
}
