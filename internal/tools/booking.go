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

// Booking is a confirmed showing appointment.
type Booking struct {
	ConfirmationID string    `bson:"_id" json:"confirmation_id"`
	PropertyID     string    `bson:"property_id" json:"property_id"`
	ShowingAt      time.Time `bson:"showing_at" json:"showing_at"`
	ContactName    string    `bson:"contact_name" json:"contact_name"`
	ContactPhone   string    `bson:"contact_phone" json:"contact_phone"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

type BookingStore interface {
	Insert(ctx context.Context, b *Booking) error
}

// BookShowingHandler implements the book_showing tool.
type BookShowingHandler struct {
	bookings BookingStore
	sms      notify.SMSSender
	log      *zap.Logger
}

func NewBookShowingHandler(bookings BookingStore, sms notify.SMSSender, log *zap.Logger) *BookShowingHandler {
	return &BookShowingHandler{bookings: bookings, sms: sms, log: log}
}

func (h *BookShowingHandler) Name() string { return "book_showing" }

func (h *BookShowingHandler) Execute(ctx context.Context, args map[string]interface{}) (map[string]interface{}, *ToolError) {
	propertyID := stringArg(args, "propertyId")
	if propertyID == "" {
		return nil, ValidationError("propertyId is required")
	}

	datetimeISO := stringArg(args, "datetimeISO")
	if datetimeISO == "" {
		return nil, ValidationError("datetimeISO is required")
	}
	showingAt, err := time.Parse(time.RFC3339, datetimeISO)
	if err != nil {
		return nil, ValidationError("datetimeISO must be RFC 3339")
	}

	contact, _ := args["contact"].(map[string]interface{})
	name := stringArg(contact, "name")
	phone := stringArg(contact, "phone")
	if name == "" || phone == "" {
		return nil, ValidationError("contact.name and contact.phone are required")
	}
	if !utils.ValidateE164(utils.NormalizePhone(phone)) {
		return nil, ValidationError("contact.phone must be a valid phone number")
	}

	booking := &Booking{
		ConfirmationID: "SHOW-" + time.Now().Format("20060102150405"),
		PropertyID:     propertyID,
		ShowingAt:      showingAt.UTC(),
		ContactName:    name,
		ContactPhone:   utils.NormalizePhone(phone),
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.bookings.Insert(ctx, booking); err != nil {
		h.log.Error("Failed to persist booking", zap.Error(err), zap.String("property_id", propertyID))
		return nil, ExecutionError("could not save the showing")
	}

	// Confirmation text is best effort; the booking stands either way.
	message := fmt.Sprintf("Your showing for %s is confirmed for %s. Confirmation: %s",
		propertyID, showingAt.Format("Mon Jan 2 at 3:04 PM"), booking.ConfirmationID)
	if err := h.sms.Send(ctx, booking.ContactPhone, message); err != nil {
		h.log.Warn("Booking confirmation SMS failed",
			zap.Error(err),
			logger.MaskPhone("phone", booking.ContactPhone),
		)
	}

	return map[string]interface{}{
		"confirmationId": booking.ConfirmationID,
		"propertyId":     propertyID,
		"datetime":       booking.ShowingAt.Format(time.RFC3339),
		"status":         "confirmed",
	}, nil
}
