package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/internal/registry"
	apperrors "github.com/coravoice/call-gateway/pkg/errors"
	"github.com/coravoice/call-gateway/pkg/webhook"
)

// terminalStatuses are the vendor call states that end a session.
var terminalStatuses = map[string]bool{
	"completed": true,
	"failed":    true,
	"busy":      true,
	"no-answer": true,
	"canceled":  true,
}

// VoiceStatusWebhook receives the telephony vendor's status callbacks and
// closes out calls when they reach a terminal state. Signature verified,
// then idempotent: vendors retry callbacks freely.
func (h *Handler) VoiceStatusWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		apperrors.BadRequest(c, "invalid form payload")
		return
	}

	signature := c.GetHeader("X-Twilio-Signature")
	requestURL := h.cfg.PublicBaseURL + c.Request.URL.Path
	if err := webhook.VerifyTwilioSignature(h.cfg.ProviderWebhookSecret, requestURL, c.Request.PostForm, signature); err != nil {
		h.logger.Warn("Webhook signature rejected", zap.Error(err))
		apperrors.Unauthorized(c, "invalid webhook signature")
		return
	}

	cb := webhook.ParseStatusCallback(c.Request.PostForm)
	if cb.CallSID == "" {
		apperrors.BadRequest(c, "CallSid is required")
		return
	}

	if !terminalStatuses[cb.CallStatus] {
		c.Status(http.StatusNoContent)
		return
	}

	call, err := h.registry.GetBySID(c.Request.Context(), cb.CallSID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			// Status for a call we never registered. Acknowledge so the
			// vendor stops retrying.
			h.logger.Warn("Webhook for unknown call", zap.String("provider_call_sid", cb.CallSID))
			c.Status(http.StatusNoContent)
			return
		}
		apperrors.InternalError(c, err, h.logger)
		return
	}

	// Twilio reports the billed duration on terminal callbacks; prefer it
	// over our wall-clock estimate.
	var durationSec *int
	if d, err := strconv.Atoi(cb.CallDuration); err == nil {
		durationSec = &d
	}

	if _, err := h.registry.Complete(c.Request.Context(), call.ID, durationSec); err != nil {
		apperrors.InternalError(c, err, h.logger)
		return
	}

	h.logger.Info("Call closed by vendor webhook",
		zap.String("call_id", call.ID),
		zap.String("status", cb.CallStatus),
		zap.String("call_duration", cb.CallDuration),
	)
	c.Status(http.StatusNoContent)
}
