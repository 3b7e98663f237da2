// Package money holds the whole-peso arithmetic shared by the cart, the
// checkout message and the order status view.
//
// Amounts shown to customers are integers. Line and total amounts are
// truncated toward zero, the suggested tip is rounded half up.
package money

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TipRate is the suggested tip for table orders.
var TipRate = decimal.RequireFromString("0.10")

// Truncate drops the fractional part of d.
func Truncate(d decimal.Decimal) int64 {
	return d.Truncate(0).IntPart()
}

// Round rounds d to the nearest whole unit, halves away from zero.
func Round(d decimal.Decimal) int64 {
	return d.Round(0).IntPart()
}

// SuggestedTip returns the rounded tip for the given base amount.
func SuggestedTip(base decimal.Decimal) int64 {
	return Round(base.Mul(TipRate))
}

// Group formats n with '.' as the thousands separator (1500 -> "1.500").
func Group(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	digits := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteByte('.')
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// ARS renders n as a customer-facing label, e.g. "$1.500 ARS".
func ARS(n int64) string {
	return fmt.Sprintf("$%s ARS", Group(n))
}

// ParseAmount reads a loosely typed amount (JSON number or numeric string)
// and truncates it. Anything unparseable yields 0.
func ParseAmount(s string) int64 {
	s = strings.Trim(strings.TrimSpace(s), `"`)
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return Truncate(d)
}
