package tools

import (
	"go.uber.org/zap"

	"github.com/coravoice/call-gateway/pkg/notify"
)

// Stores groups the persistence dependencies of the default tool set.
type Stores struct {
	Listings  ListingStore
	Bookings  BookingStore
	Leads     LeadStore
	Callbacks CallbackStore
}

// RegisterDefaults wires the five production tools into the dispatcher.
func RegisterDefaults(d *Dispatcher, stores Stores, sms notify.SMSSender, log *zap.Logger) {
	d.Register(NewSearchHandler(stores.Listings))
	d.Register(NewBookShowingHandler(stores.Bookings, sms, log))
	d.Register(NewQualifyLeadHandler(stores.Leads, log))
	d.Register(NewRequestCallbackHandler(stores.Callbacks, sms, log))
	d.Register(NewTransferHandler())
}
