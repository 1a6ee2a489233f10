package tools

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/logger"
	"github.com/coravoice/call-gateway/pkg/notify"
	"github.com/coravoice/call-gateway/pkg/utils"
)

// Callback is a promised return call.
type Callback struct {
	CallbackID string    `bson:"_id" json:"callback_id"`
	Phone      string    `bson:"phone" json:"phone"`
	Reason     string    `bson:"reason" json:"reason"`
	Timeframe  string    `bson:"timeframe" json:"timeframe"`
	CreatedAt  time.Time `bson:"created_at" json:"created_at"`
}

type CallbackStore interface {
	Insert(ctx context.Context, cb *Callback) error
}

// RequestCallbackHandler implements the request_callback tool.
type RequestCallbackHandler struct {
	callbacks CallbackStore
	sms       notify.SMSSender
	log       *zap.Logger
}

func NewRequestCallbackHandler(callbacks CallbackStore, sms notify.SMSSender, log *zap.Logger) *RequestCallbackHandler {
	return &RequestCallbackHandler{callbacks: callbacks, sms: sms, log: log}
}

func (h *RequestCallbackHandler) Name() string { return "request_callback" }

func (h *RequestCallbackHandler) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError) {
	phone := stringArg(args, "phone")
	if phone == "" {
		return nil, ValidationError("phone is required")
	}
	phone = utils.NormalizePhone(phone)
	if !utils.ValidateE164(phone) {
		return nil, ValidationError("phone must be a valid phone number")
	}

	reason := stringArg(args, "reason")

	// Status checks get the fast lane; everything else joins the regular
	// callback queue.
	timeframe := "within 30 minutes"
	if reason == "status_update" {
		timeframe = "within 15 minutes"
	}

	cb := &Callback{
		CallbackID: "CB-" + time.Now().Format("20060102150405"),
		Phone:      phone,
		Reason:     reason,
		Timeframe:  timeframe,
		CreatedAt:  time.Now().UTC(),
	}
	if err := h.callbacks.Insert(ctx, cb); err != nil {
		h.log.Error("Failed to persist callback", zap.Error(err))
		return nil, ExecutionError("could not save the callback request")
	}

	message := fmt.Sprintf("We received your callback request and will call you back %s. Reference: %s", timeframe, cb.CallbackID)
	if err := h.sms.Send(ctx, phone, message); err != nil {
		h.log.Warn("Callback confirmation SMS failed",
			zap.Error(err),
			logger.MaskPhone("phone", phone),
		)
	}

	return map[string]interface{}{
		"callbackId": cb.CallbackID,
		"timeframe":  timeframe,
		"status":     "scheduled",
	}, nil
}
