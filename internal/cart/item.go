package cart

import (
	"math"

	"github.com/shopspring/decimal"

	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/money"
)

// LineItem is one product in the cart. The JSON shape matches what the
// page has always written to local storage.
type LineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Image    string  `json:"image,omitempty"`
	Quantity int     `json:"quantity"`
	Notes    string  `json:"notes,omitempty"`
}

// validPrice reports whether p can be charged.
func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

func (li LineItem) lineTotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// UnitPrice is the unit price as shown to the customer (truncated).
func (li LineItem) UnitPrice() int64 {
	return money.Truncate(decimal.NewFromFloat(li.Price))
}

// Subtotal is price times quantity as shown to the customer (truncated).
func (li LineItem) Subtotal() int64 {
	return money.Truncate(li.lineTotal())
}

// Totals are the whole-peso amounts of a cart for a given order type.
type Totals struct {
	Subtotal int64 `json:"subtotal"`
	Shipping int64 `json:"shipping"`
	Tip      int64 `json:"tip"`
	Total    int64 `json:"total"`

	// BeforeTip is subtotal plus shipping, the "TOTAL (sin propina)" line.
	BeforeTip int64 `json:"before_tip"`
}

// ComputeTotals prices items for orderType. Shipping applies to delivery
// orders only and the 10% tip to table orders only; the tip is computed on
// subtotal plus shipping. Line amounts truncate, the tip rounds.
func ComputeTotals(items []LineItem, orderType string, shipping func() int64) Totals {
	raw := decimal.Zero
	for _, it := range items {
		raw = raw.Add(it.lineTotal())
	}

	var t Totals
	t.Subtotal = money.Truncate(raw)
	if orderType == enum.OrderTypeDelivery && shipping != nil {
		t.Shipping = shipping()
	}
	base := raw.Add(decimal.NewFromInt(t.Shipping))
	t.BeforeTip = money.Truncate(base)
	if orderType == enum.OrderTypeTable {
		t.Tip = money.SuggestedTip(base)
	}
	t.Total = money.Truncate(base.Add(decimal.NewFromInt(t.Tip)))
	return t
}

// Count is the number of units across all line items.
func Count(items []LineItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
