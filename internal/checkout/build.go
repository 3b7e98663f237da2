package checkout

import (
	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// Settings describe the storefront the order is placed on.
type Settings struct {
	// TenantSlug is sent to the orders API. It is canonicalized by Build.
	TenantSlug string
	Category   string
	Config     tenant.Config
}

// Order is a validated checkout, ready to be sent.
type Order struct {
	Context OrderContext         `json:"context"`
	Totals  cart.Totals          `json:"totals"`
	Message Message              `json:"message"`
	Payload backend.OrderPayload `json:"payload"`

	// URL is the WhatsApp deep link. Empty when the tenant disabled it.
	URL string `json:"url,omitempty"`
}

// Build validates the checkout form against the cart and renders the
// message and payload. An empty OrderType takes the tenant default.
func Build(items []cart.LineItem, oc OrderContext, s Settings) (*Order, error) {
	if len(items) == 0 {
		return nil, ErrEmptyCart
	}
	oc = oc.Normalize()
	if oc.OrderType == "" {
		oc.OrderType = s.Config.DefaultOrderType(s.Category)
	}
	if err := oc.Validate(); err != nil {
		return nil, err
	}

	totals := cart.ComputeTotals(items, oc.OrderType, func() int64 {
		return s.Config.ShippingFor(oc.OrderType)
	})
	msg := RenderMessage(items, oc, totals, s.Category, s.Config.Checkout.WhatsAppTemplate)

	o := &Order{
		Context: oc,
		Totals:  totals,
		Message: msg,
		Payload: NewPayload(tenant.CanonicalSlug(s.TenantSlug), oc, items),
	}
	if s.Config.WhatsAppEnabled() {
		o.URL = WhatsAppURL(s.Config.WhatsAppNumber(), msg.Text)
	}
	return o, nil
}

// NewPayload maps the checkout form and cart to the orders API body.
func NewPayload(slug string, oc OrderContext, items []cart.LineItem) backend.OrderPayload {
	p := backend.OrderPayload{
		TenantSlug: slug,
		OrderType:  oc.OrderType,
		OrderNotes: oc.Notes,
		Items:      make([]backend.PayloadItem, 0, len(items)),
	}
	switch oc.OrderType {
	case enum.OrderTypeTable:
		p.TableNumber = oc.TableNumber
	case enum.OrderTypeDelivery:
		p.Address = backend.Address{Address: oc.Address}
		p.CustomerPhone = oc.ContactPhone
		p.CustomerName = oc.DeliveryName
	case enum.OrderTypeWait:
		p.CustomerPhone = oc.WaitPhone
		p.CustomerName = oc.WaitName
	}
	for _, it := range items {
		p.Items = append(p.Items, backend.PayloadItem{
			ID:       it.ID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
			Notes:    it.Notes,
		})
	}
	return p
}
