package checkout

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/danielandresolateseguel/server1/internal/cart"
	"github.com/danielandresolateseguel/server1/internal/enum"
	"github.com/danielandresolateseguel/server1/internal/money"
	"github.com/danielandresolateseguel/server1/internal/tenant"
)

// Template placeholders. Each is replaced once, first occurrence only.
const (
	PlaceholderOrderInfo = "{PEDIDO_INFO}"
	PlaceholderItems     = "{ITEMS}"
	PlaceholderTotals    = "{TOTALES}"
	PlaceholderNotes     = "{NOTAS}"
)

const greeting = "¡Hola! \U0001F44B Espero que estés muy bien.\n\n" +
	"\U0001F6D2 Me gustaría realizar el siguiente pedido:\n\n"

// DefaultTemplate is used when the tenant configures none. The trailing
// questions are appended by DefaultTemplateFor.
const DefaultTemplate = greeting +
	PlaceholderOrderInfo + "\n\n" +
	PlaceholderItems + "\n\n" +
	PlaceholderTotals + "\n\n" +
	PlaceholderNotes + "\n\n"

var excessNewlines = regexp.MustCompile(`\n{3,}`)

// Message is a rendered order message and the blocks it was made of.
type Message struct {
	OrderInfo string `json:"order_info"`
	Items     string `json:"items"`
	Totals    string `json:"totals"`
	Notes     string `json:"notes"`

	Text string `json:"text"`

	// Fallback is set when the template produced a corrupt message and the
	// blocks were concatenated instead.
	Fallback bool `json:"fallback,omitempty"`
}

// DefaultTemplateFor returns the built-in template with the questions that
// apply to orderType and category.
func DefaultTemplateFor(orderType, category string) string {
	t := DefaultTemplate
	if orderType != enum.OrderTypeTable {
		t += "¿Podrías confirmarme la disponibilidad y el método de entrega?\n\n"
	}
	if tenant.IsCommerce(category) {
		t += "¿Qué métodos de pago aceptan? (efectivo, débito, crédito, transferencia)\n\n"
	}
	return t + "¡Muchas gracias! \U0001F60A"
}

// RenderMessage builds the order message. template may be empty. oc must
// be normalized and valid.
func RenderMessage(items []cart.LineItem, oc OrderContext, totals cart.Totals, category, template string) Message {
	m := Message{
		OrderInfo: orderInfoBlock(oc),
		Items:     itemsBlock(items),
		Totals:    totalsBlock(totals, oc.OrderType, category),
		Notes:     notesBlock(oc.Notes),
	}
	if template == "" {
		template = DefaultTemplateFor(oc.OrderType, category)
	}

	text := strings.Replace(template, PlaceholderOrderInfo, m.OrderInfo, 1)
	text = strings.Replace(text, PlaceholderItems, m.Items, 1)
	text = strings.Replace(text, PlaceholderTotals, m.Totals, 1)
	text = strings.Replace(text, PlaceholderNotes, m.Notes, 1)

	if isCorrupt(text) {
		m.Fallback = true
		text = greeting + m.OrderInfo + "\n\n" + m.Items + "\n\n" + m.Totals + "\n\n" + m.Notes
	}
	m.Text = normalize(text)
	return m
}

func orderInfoBlock(oc OrderContext) string {
	switch oc.OrderType {
	case enum.OrderTypeTable:
		return "\U0001F4CD Modalidad: Mesa\n   \U0001F37D Mesa N°: " + oc.TableNumber
	case enum.OrderTypeDelivery:
		return "\U0001F4CD Modalidad: Dirección\n   \U0001F3E0 Dirección: " + oc.Address +
			"\n   \U0001F464 Nombre: " + oc.DeliveryName
	case enum.OrderTypeWait:
		return "\U0001F4CD Modalidad: Espera en local\n   \U0001F464 Nombre: " + oc.WaitName +
			"\n   \U0001F4DE Teléfono: " + oc.WaitPhone
	}
	return ""
}

func itemsBlock(items []cart.LineItem) string {
	var b strings.Builder
	for i, it := range items {
		fmt.Fprintf(&b, "%d. \U0001F4E6 %s\n", i+1, it.Name)
		fmt.Fprintf(&b, "   \U0001F4CA Cantidad: %d\n", it.Quantity)
		fmt.Fprintf(&b, "   \U0001F4B5 Precio unitario: %s\n", money.ARS(it.UnitPrice()))
		fmt.Fprintf(&b, "   \U0001F4B0 Subtotal: %s\n", money.ARS(it.Subtotal()))
		if notes := strings.TrimSpace(it.Notes); notes != "" {
			fmt.Fprintf(&b, "   \U0001F4DD Detalle: %s\n", notes)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func totalsBlock(t cart.Totals, orderType, category string) string {
	var b strings.Builder
	if t.Shipping > 0 {
		b.WriteString("\U0001F69A Costo de envío: " + money.ARS(t.Shipping) + "\n")
	}
	if tenant.IsCommerce(category) {
		b.WriteString("\U0001F4B0 TOTAL: " + money.ARS(t.BeforeTip) + "\n")
	} else {
		b.WriteString("\U0001F4B0 TOTAL (sin propina): " + money.ARS(t.BeforeTip) + "\n")
	}
	if orderType == enum.OrderTypeTable {
		b.WriteString("\U0001F481 Propina sugerida (10%): " + money.ARS(t.Tip) + "\n")
		b.WriteString("\U0001F37D\uFE0F TOTAL con propina sugerida: " + money.ARS(t.Total) + "\n")
	}
	return b.String()
}

func notesBlock(notes string) string {
	if notes == "" {
		return ""
	}
	return "\U0001F4DD Detalle adicional: " + notes
}

// isCorrupt reports a message carrying U+FFFD or bytes that are not UTF-8,
// the signature of a template saved with the wrong encoding.
func isCorrupt(s string) bool {
	return strings.ContainsRune(s, utf8.RuneError) || !utf8.ValidString(s)
}

func normalize(s string) string {
	s = excessNewlines.ReplaceAllString(s, "\n\n")
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
