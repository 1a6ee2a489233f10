package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/internal/registry"
	apperrors "github.com/coravoice/call-gateway/pkg/errors"
	"github.com/coravoice/call-gateway/pkg/logger"
	"github.com/coravoice/call-gateway/pkg/metrics"
	"github.com/coravoice/call-gateway/pkg/middleware"
	"github.com/coravoice/call-gateway/pkg/token"
	"github.com/coravoice/call-gateway/pkg/utils"
)

type CreateCallRequest struct {
	TenantID          string `json:"tenant_id"`
	ExternalSessionID string `json:"external_session_id" binding:"required"`
	CallerNumber      string `json:"caller_number"`
	AgentNumber       string `json:"agent_number"`
}

type CreateCallResponse struct {
	CallID    string      `json:"call_id"`
	Token     string      `json:"token"`
	ExpiresAt string      `json:"expires_at"`
	Tenant    interface{} `json:"tenant"`
	Agent     interface{} `json:"agent"`
}

// CreateCall registers a call session and mints its scoped token. The
// operation is idempotent on external_session_id: posting the same session
// twice returns the same call with a fresh token.
func (h *Handler) CreateCall(c *gin.Context) {
	start := time.Now()
	var req CreateCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apperrors.BadRequest(c, err.Error())
		return
	}

	tenantID := req.TenantID
	if tenantID == "" {
		tenantID = h.cfg.DefaultTenantID
	}
	tenantCfg, agentCfg := h.tenants.Resolve(c.Request.Context(), tenantID)

	call, outcome, err := h.registry.CreateOrGet(c.Request.Context(), registry.CreateParams{
		TenantID:        tenantCfg.ID,
		ProviderCallSID: req.ExternalSessionID,
		CallerNumber:    req.CallerNumber,
		AgentNumber:     req.AgentNumber,
	})
	if err != nil {
		metrics.RecordRequest("/api/calls", false, time.Since(start))
		apperrors.InternalError(c, err, h.logger)
		return
	}

	ttl := time.Duration(h.cfg.TokenTTLMin) * time.Minute
	signed, expiresAt, err := h.tokens.Mint(call.ID, call.TenantID,
		[]string{token.ScopeEvents, token.ScopeTools}, ttl, c.GetString("request_id"))
	if err != nil {
		metrics.RecordRequest("/api/calls", false, time.Since(start))
		apperrors.InternalError(c, err, h.logger)
		return
	}

	h.logger.Info("Call session ready",
		zap.String("call_id", call.ID),
		zap.String("outcome", string(outcome)),
		logger.MaskPhoneIfPresent("caller_number", call.CallerNumber),
	)
	metrics.RecordRequest("/api/calls", true, time.Since(start))

	status := http.StatusOK
	if outcome == registry.OutcomeCreated {
		status = http.StatusCreated
	}
	c.JSON(status, CreateCallResponse{
		CallID:    call.ID,
		Token:     signed,
		ExpiresAt: expiresAt.UTC().Format(time.RFC3339),
		Tenant:    tenantCfg,
		Agent:     agentCfg,
	})
}

// ListCalls returns a page of calls, newest first. Optional tenant_id and
// status query params narrow the listing.
func (h *Handler) ListCalls(c *gin.Context) {
	params := utils.ParsePagination(c)
	filter := registry.ListFilter{
		TenantID: c.Query("tenant_id"),
		Status:   c.Query("status"),
	}

	calls, total, err := h.registry.List(c.Request.Context(), filter, params.Page, params.Limit)
	if err != nil {
		apperrors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, utils.PaginatedResponse{
		Data:  calls,
		Page:  params.Page,
		Limit: params.Limit,
		Total: total,
		Count: len(calls),
	})
}

// GetCallDetail returns one call with its ordered timeline.
func (h *Handler) GetCallDetail(c *gin.Context) {
	callID := c.Param("call_id")

	call, err := h.registry.Get(c.Request.Context(), callID)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			apperrors.NotFound(c, "call not found")
			return
		}
		apperrors.InternalError(c, err, h.logger)
		return
	}

	events, err := h.timeline.List(c.Request.Context(), callID)
	if err != nil {
		apperrors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"call":     call,
		"timeline": events,
	})
}

type CompleteCallRequest struct {
	DurationSec *int `json:"duration_sec"`
}

// CompleteCall marks the authenticated call finished. The body is optional:
// a caller that knows the billed duration sends duration_sec, otherwise the
// gateway derives it. Safe to repeat; a repeated call with a duration
// overwrites the stored one.
func (h *Handler) CompleteCall(c *gin.Context) {
	callID := c.Param("call_id")

	id, ok := middleware.Identity(c)
	if !ok || id.CallID != callID {
		apperrors.Forbidden(c, "token is not bound to this call")
		return
	}

	var req CompleteCallRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apperrors.BadRequest(c, err.Error())
			return
		}
	}
	if req.DurationSec != nil && *req.DurationSec < 0 {
		apperrors.BadRequest(c, "duration_sec must not be negative")
		return
	}

	call, err := h.registry.Complete(c.Request.Context(), callID, req.DurationSec)
	if err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			apperrors.NotFound(c, "call not found")
			return
		}
		apperrors.InternalError(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, call)
}
