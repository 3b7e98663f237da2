// Package tenant describes one business running on the storefront: its
// remote configuration (GET /api/config) and how its slug is resolved.
package tenant

import (
	"encoding/json"
	"strings"
	"sync"

	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/money"
)

// DefaultWhatsAppNumber receives orders when the tenant configures none.
const DefaultWhatsAppNumber = "+5492615893590"

// Amount is a whole-peso value that the config API sends either as a JSON
// number or as a numeric string. Fractions are truncated.
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*a = 0
		return nil
	}
	*a = Amount(money.ParseAmount(string(b)))
	return nil
}

// Config is the tenant configuration. Every field is optional; the
// accessor methods apply the documented defaults.
type Config struct {
	// ShippingCost is charged on delivery orders only. Default 0.
	ShippingCost Amount `json:"shipping_cost"`

	// Estimated minutes per order type, shown in the status view.
	// Zero hides the estimate.
	TimeMesa     int  `json:"time_mesa"`
	TimeEspera   int  `json:"time_espera"`
	TimeDelivery int  `json:"time_delivery"`
	TimeAuto     bool `json:"time_auto"`

	Checkout CheckoutConfig `json:"checkout"`

	// Catalog and Filters are rendered by the page; the core passes them
	// through untouched.
	Catalog []json.RawMessage `json:"catalog,omitempty"`
	Filters FiltersConfig     `json:"filters"`
}

// CheckoutConfig controls how an order leaves the storefront.
type CheckoutConfig struct {
	// Mode is "mesa", "whatsapp" or "general". Empty falls back by category.
	Mode string `json:"mode"`

	// WhatsAppNumber receives the order message. Default DefaultWhatsAppNumber.
	WhatsAppNumber string `json:"whatsappNumber"`

	// WhatsAppEnabled, when explicitly false, skips opening the chat.
	WhatsAppEnabled *bool `json:"whatsappEnabled,omitempty"`

	// WhatsAppTemplate uses {PEDIDO_INFO}, {ITEMS}, {TOTALES} and {NOTAS}.
	// Empty selects the built-in template.
	WhatsAppTemplate string `json:"whatsappTemplate"`
}

type FiltersConfig struct {
	Categories []string `json:"categories,omitempty"`
}

// ShippingFor returns the shipping cost that applies to orderType.
func (c Config) ShippingFor(orderType string) int64 {
	if orderType != enum.OrderTypeDelivery || c.ShippingCost < 0 {
		return 0
	}
	return int64(c.ShippingCost)
}

// WhatsAppNumber returns the configured number or the default.
func (c Config) WhatsAppNumber() string {
	if n := strings.TrimSpace(c.Checkout.WhatsAppNumber); n != "" {
		return n
	}
	return DefaultWhatsAppNumber
}

// WhatsAppEnabled defaults to true.
func (c Config) WhatsAppEnabled() bool {
	if c.Checkout.WhatsAppEnabled == nil {
		return true
	}
	return *c.Checkout.WhatsAppEnabled
}

// CheckoutMode returns the configured mode, falling back by category.
func (c Config) CheckoutMode(category string) string {
	if c.Checkout.Mode != "" {
		return c.Checkout.Mode
	}
	switch category {
	case enum.CategoryServices, enum.CategoryCommerce:
		return enum.CheckoutModeWhatsApp
	case enum.CategoryGastronomy:
		return enum.CheckoutModeTable
	default:
		return enum.CheckoutModeGeneral
	}
}

// DefaultOrderType is used when the customer has not picked one.
func (c Config) DefaultOrderType(category string) string {
	if c.CheckoutMode(category) == enum.CheckoutModeTable {
		return enum.OrderTypeTable
	}
	return enum.OrderTypeNone
}

// EstimatedMinutes returns the configured wait for orderType. An empty
// order type counts as a table order.
func (c Config) EstimatedMinutes(orderType string) int {
	switch orderType {
	case enum.OrderTypeTable, "":
		return c.TimeMesa
	case enum.OrderTypeWait:
		return c.TimeEspera
	case enum.OrderTypeDelivery:
		return c.TimeDelivery
	}
	return 0
}

// IsCommerce reports whether category uses retail wording in messages.
func IsCommerce(category string) bool {
	c := strings.ToLower(category)
	return c == enum.CategoryCommerce || c == enum.CategoryGeneral
}

// Holder is the current config of one storefront. The zero value holds an
// empty Config.
type Holder struct {
	mu     sync.RWMutex
	cfg    Config
	loaded bool
}

func (h *Holder) Current() Config {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.cfg
}

func (h *Holder) Set(cfg Config) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.cfg = cfg
	h.loaded = true
}

// Loaded reports whether Set has been called.
func (h *Holder) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.loaded
}
