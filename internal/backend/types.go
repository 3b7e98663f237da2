package backend

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// OrderID is an order identifier. The orders API returns integers; the
// storefront stores and compares them as strings.
type OrderID string

func (id *OrderID) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		*id = OrderID(str)
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return err
	}
	*id = OrderID(s)
	return nil
}

func (id OrderID) String() string { return string(id) }

// OrderPayload is the body of POST /api/orders.
type OrderPayload struct {
	TenantSlug    string        `json:"tenant_slug"`
	OrderType     string        `json:"order_type"`
	TableNumber   string        `json:"table_number"`
	Address       Address       `json:"address"`
	CustomerPhone string        `json:"customer_phone"`
	CustomerName  string        `json:"customer_name"`
	Items         []PayloadItem `json:"items"`
	OrderNotes    string        `json:"order_notes"`
}

// Address is sent as {} for orders that are not delivered.
type Address struct {
	Address string `json:"address,omitempty"`
}

type PayloadItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
	Notes    string  `json:"notes"`
}

// SubmitResult is the response of POST /api/orders.
type SubmitResult struct {
	OrderID OrderID         `json:"order_id"`
	Total   decimal.Decimal `json:"total"`
}

// OrderRecord is the public view of an order, GET /api/orders/:id.
type OrderRecord struct {
	ID          OrderID         `json:"id"`
	TenantSlug  string          `json:"tenant_slug,omitempty"`
	Status      string          `json:"status"`
	OrderType   string          `json:"order_type"`
	TableNumber string          `json:"table_number,omitempty"`
	CreatedAt   string          `json:"created_at"`
	Total       decimal.Decimal `json:"total"`
}

// OrderItem is one line of an order as recorded by the backend.
type OrderItem struct {
	Name      string          `json:"name"`
	Qty       int             `json:"qty"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     *string         `json:"notes"`
}

// OrderDetail is the response of GET /api/orders/:id. Order is nil when
// the backend answers with an unexpected shape.
type OrderDetail struct {
	Order *OrderRecord `json:"order"`
	Items []OrderItem  `json:"items"`
}

// Product is one catalog entry of GET /api/products.
type Product struct {
	ID       json.RawMessage `json:"id"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Image    string          `json:"image,omitempty"`
	Category string          `json:"category,omitempty"`
	Active   *bool           `json:"active,omitempty"`
}
