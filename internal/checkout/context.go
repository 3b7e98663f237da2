// Package checkout turns a cart and the checkout form into a WhatsApp
// order message and an orders API payload, then runs the checkout side
// effects in order.
package checkout

import (
	"errors"
	"strings"

	"github.com/danielandresolateseguel/server1/internal/enum"
)

// ValidationError is a checkout form problem shown to the customer as-is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

// ErrEmptyCart is returned before any other validation.
var ErrEmptyCart = &ValidationError{Field: "cart", Message: "Tu carrito está vacío"}

// OrderContext is what the customer typed in the checkout form. Fields not
// relevant to OrderType are ignored.
type OrderContext struct {
	OrderType string `json:"order_type"`

	TableNumber string `json:"table_number,omitempty"`

	Address      string `json:"address,omitempty"`
	ContactPhone string `json:"contact_phone,omitempty"`
	DeliveryName string `json:"delivery_name,omitempty"`

	WaitName  string `json:"wait_name,omitempty"`
	WaitPhone string `json:"wait_phone,omitempty"`

	Notes string `json:"notes,omitempty"`
}

// Normalize trims every field.
func (oc OrderContext) Normalize() OrderContext {
	oc.OrderType = strings.TrimSpace(oc.OrderType)
	oc.TableNumber = strings.TrimSpace(oc.TableNumber)
	oc.Address = strings.TrimSpace(oc.Address)
	oc.ContactPhone = strings.TrimSpace(oc.ContactPhone)
	oc.DeliveryName = strings.TrimSpace(oc.DeliveryName)
	oc.WaitName = strings.TrimSpace(oc.WaitName)
	oc.WaitPhone = strings.TrimSpace(oc.WaitPhone)
	oc.Notes = strings.TrimSpace(oc.Notes)
	return oc
}

// Validate checks the fields required by the order type. It expects a
// normalized context.
func (oc OrderContext) Validate() error {
	switch oc.OrderType {
	case enum.OrderTypeTable:
		if oc.TableNumber == "" {
			return &ValidationError{Field: "table_number", Message: "Por favor, ingresa el número de mesa."}
		}
	case enum.OrderTypeDelivery:
		if oc.Address == "" {
			return &ValidationError{Field: "address", Message: "Por favor, ingresa la dirección de entrega."}
		}
		if oc.ContactPhone == "" {
			return &ValidationError{Field: "contact_phone", Message: "Por favor, ingresa el teléfono de contacto."}
		}
		if oc.DeliveryName == "" {
			return &ValidationError{Field: "delivery_name", Message: "Por favor, ingresa tu nombre."}
		}
	case enum.OrderTypeWait:
		if oc.WaitName == "" {
			return &ValidationError{Field: "wait_name", Message: "Por favor, ingresa tu nombre."}
		}
		if oc.WaitPhone == "" {
			return &ValidationError{Field: "wait_phone", Message: "Por favor, ingresa tu teléfono."}
		}
	case enum.OrderTypeNone:
	default:
		return &ValidationError{Field: "order_type", Message: "Tipo de pedido inválido."}
	}
	return nil
}

// IsValidationError reports whether err should be shown to the customer.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
