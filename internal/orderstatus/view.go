package orderstatus

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/danielandresolateseguel/server1/internal/backend"
	"github.com/danielandresolateseguel/server1/internal/checkout"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/money"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// ReadyMessage is shown while an order waits at the counter.
const ReadyMessage = "¡Tu pedido está listo! Por favor acércate al mostrador."

// CTA modes.
const (
	CTAChat = "chat"
	CTAPay  = "pay"
)

// View is everything the status modal shows for one order.
type View struct {
	OrderID   string     `json:"order_id"`
	Status    string     `json:"status"`
	Badge     StatusInfo `json:"badge"`
	OrderType string     `json:"order_type"`

	Steps     []StepView `json:"steps,omitempty"`
	StepIndex int        `json:"step_index"`
	Cancelled bool       `json:"cancelled,omitempty"`

	CreatedAt        string `json:"created_at"`
	EstimatedMinutes int    `json:"estimated_minutes,omitempty"`

	Items  []ItemView `json:"items"`
	Totals TotalsView `json:"totals"`

	ReadyAlert string `json:"ready_alert,omitempty"`
	CTA        CTA    `json:"cta"`
}

type ItemView struct {
	Qty       int    `json:"qty"`
	Name      string `json:"name"`
	UnitPrice string `json:"unit_price"`
	Note      string `json:"note,omitempty"`
}

// TotalsView is the totals section. Table orders get the tip breakdown,
// recomputed from the server total.
type TotalsView struct {
	WithTip bool `json:"with_tip"`

	Total string `json:"total"`

	Base         int64 `json:"base,omitempty"`
	Tip          int64 `json:"tip,omitempty"`
	TotalWithTip int64 `json:"total_with_tip,omitempty"`
}

// CTA is the WhatsApp button. It alternates between asking about the
// order and paying for it.
type CTA struct {
	Mode      string `json:"mode"`
	Label     string `json:"label"`
	Icon      string `json:"icon"`
	AriaLabel string `json:"aria_label"`
	URL       string `json:"url"`
	ChatURL   string `json:"chat_url"`
	PayURL    string `json:"pay_url"`
}

// NewCTA builds the button for orderID in the given mode.
func NewCTA(number, orderID string, paymentMode bool) CTA {
	digits := onlyDigits(number)
	c := CTA{
		ChatURL: waMe(digits, "Hola, tengo una consulta sobre mi pedido #"+orderID+"."),
		PayURL:  waMe(digits, "Hola, quiero realizar el pago del pedido #"+orderID+"."),
	}
	if paymentMode {
		c.Mode = CTAPay
		c.Label = "Realizar pago"
		c.Icon = "fa-credit-card"
		c.AriaLabel = "Realizar pago por WhatsApp"
		c.URL = c.PayURL
	} else {
		c.Mode = CTAChat
		c.Label = "Consultar por este pedido"
		c.Icon = "fa-whatsapp"
		c.AriaLabel = "Consultar pedido por WhatsApp"
		c.URL = c.ChatURL
	}
	return c
}

func waMe(digits, text string) string {
	return "https://wa.me/" + digits + "?text=" + checkout.EncodeURIComponent(text)
}

func onlyDigits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildView renders an order. loc is the storefront's time zone.
func BuildView(order backend.OrderRecord, items []backend.OrderItem, cfg tenant.Config, paymentMode bool, loc *time.Location) View {
	id := order.ID.String()
	v := View{
		OrderID:   id,
		Status:    order.Status,
		Badge:     Describe(order.Status),
		OrderType: order.OrderType,
		Steps:     Stepper(order.Status, order.OrderType),
		StepIndex: StepIndex(order.Status, order.OrderType),
		CreatedAt: FormatCreatedAt(order.CreatedAt, loc),
		Items:     make([]ItemView, 0, len(items)),
		CTA:       NewCTA(cfg.WhatsAppNumber(), id, paymentMode),
	}
	v.Cancelled = v.StepIndex == CancelledStep

	if order.Status != enum.StatusDelivered && order.Status != enum.StatusCancelled {
		v.EstimatedMinutes = max(cfg.EstimatedMinutes(order.OrderType), 0)
	}
	if order.Status == enum.StatusReady {
		v.ReadyAlert = ReadyMessage
	}

	for _, it := range items {
		v.Items = append(v.Items, ItemView{
			Qty:       it.Qty,
			Name:      it.Name,
			UnitPrice: it.UnitPrice.String(),
			Note:      itemNote(it.Notes),
		})
	}

	v.Totals = totalsView(order)
	return v
}

func totalsView(order backend.OrderRecord) TotalsView {
	if order.OrderType != enum.OrderTypeTable {
		return TotalsView{Total: order.Total.String()}
	}
	base := money.Truncate(order.Total)
	tip := money.SuggestedTip(decimal.NewFromInt(base))
	return TotalsView{
		WithTip:      true,
		Total:        order.Total.String(),
		Base:         base,
		Tip:          tip,
		TotalWithTip: base + tip,
	}
}

func itemNote(notes *string) string {
	if notes == nil {
		return ""
	}
	n := *notes
	if n == "null" || n == "undefined" {
		return ""
	}
	return n
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// FormatCreatedAt renders an API timestamp as "dd/mm, hh:mm" in loc.
// Timestamps without a zone are UTC. Unparseable input yields "".
func FormatCreatedAt(s string, loc *time.Location) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if loc == nil {
		loc = DefaultLocation()
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		var ok bool
		for _, layout := range naiveLayouts {
			if t, err = time.ParseInLocation(layout, s, time.UTC); err == nil {
				ok = true
				break
			}
		}
		if !ok {
			return ""
		}
	}
	return t.In(loc).Format("02/01, 15:04")
}

// DefaultLocation is Buenos Aires, or a fixed UTC-3 zone when the tz
// database is unavailable.
func DefaultLocation() *time.Location {
	if loc, err := time.LoadLocation("America/Argentina/Buenos_Aires"); err == nil {
		return loc
	}
	return time.FixedZone("ART", -3*60*60)
}
