package enum

// ── Group A: Order context (sent to the orders API as-is) ──

const (
	OrderTypeTable    = "mesa"
	OrderTypeDelivery = "direccion"
	OrderTypeWait     = "espera"
	OrderTypeNone     = "none"
)

// ── Group B: Storefront verticals (data-category on the page) ──

const (
	CategoryGastronomy = "gastronomia"
	CategoryCommerce   = "comercio"
	CategoryServices   = "servicios"
	CategoryGeneral    = "general"
)

const (
	CheckoutModeTable    = "mesa"
	CheckoutModeWhatsApp = "whatsapp"
	CheckoutModeGeneral  = "general"
)

// ── Group C: Order status (owned by the orders API) ──

const (
	StatusPending   = "pendiente"
	StatusPreparing = "preparacion"
	StatusReady     = "listo"
	StatusOnTheWay  = "en_camino"
	StatusDelivered = "entregado"
	StatusCancelled = "cancelado"
)

// ── Group D: Events pushed to the page ──

const (
	EventCartChanged      = "cart.changed"
	EventCartOverlayClose = "cart.overlay_closed"
	EventOpenLink         = "checkout.open_link"
	EventOrderSubmitted   = "checkout.order_submitted"
	EventAlert            = "alert"
	EventStatusChanged    = "status.changed"
	EventStatusBadge      = "status.badge"
	EventStatusCTA        = "status.cta"
	EventCelebrate        = "status.celebrate"
)

// IsOrderType reports whether s is one of the order types the orders API accepts.
func IsOrderType(s string) bool {
	switch s {
	case OrderTypeTable, OrderTypeDelivery, OrderTypeWait, OrderTypeNone:
		return true
	}
	return false
}
