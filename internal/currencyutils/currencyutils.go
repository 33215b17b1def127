// Package currencyutils provides parsing and formatting of the currency amounts found in
// bank statements.
package currencyutils

import (
	"regexp"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// DefaultMarker is the currency marker printed by the statements this tool ingests.
const DefaultMarker = "J$"

// sentinelTokens mark a column that carries no amount at all.
var sentinelTokens = map[string]struct{}{
	"":     {},
	"nan":  {},
	"none": {},
	"0":    {},
	"0.0":  {},
}

var (
	nonNumeric = regexp.MustCompile(`[^0-9.]`)
	hasDigit   = regexp.MustCompile(`[0-9]`)
)

// Normalizer parses and formats amounts for one currency marker.
type Normalizer struct {
	Marker string
}

// NewNormalizer returns a Normalizer for marker, falling back to DefaultMarker.
func NewNormalizer(marker string) Normalizer {
	if strings.TrimSpace(marker) == "" {
		marker = DefaultMarker
	}
	return Normalizer{Marker: marker}
}

// Parse converts a locale-formatted currency string into a signed decimal.
// The boolean is false when the input holds no amount: empty text, a sentinel token,
// no digits, something that is not a number, or an exact zero.
func (n Normalizer) Parse(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if _, ok := sentinelTokens[strings.ToLower(s)]; ok {
		return decimal.Zero, false
	}
	if !hasDigit.MatchString(s) {
		return decimal.Zero, false
	}

	s = strings.ReplaceAll(s, n.Marker, "")
	negative := strings.Contains(s, "-") ||
		(strings.Contains(s, "(") && strings.Contains(s, ")"))
	s = nonNumeric.ReplaceAllString(s, "")
	if s == "" || strings.Count(s, ".") > 1 {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(s)
	if err != nil || amount.IsZero() {
		return decimal.Zero, false
	}
	if negative {
		amount = amount.Neg()
	}
	return amount, true
}

// Format renders an amount as "<marker><grouped>.<2 decimals>", e.g. "J$1,234.56".
// Negative amounts keep the sign after the marker: "J$-1,234.56".
func (n Normalizer) Format(amount decimal.Decimal) string {
	rounded := amount.Round(2)
	grouped := humanize.FormatFloat("#,###.##", rounded.Abs().InexactFloat64())
	if rounded.IsNegative() {
		return n.Marker + "-" + grouped
	}
	return n.Marker + grouped
}

var defaultNormalizer = NewNormalizer(DefaultMarker)

// ParseAmount parses raw using the default currency marker.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	return defaultNormalizer.Parse(raw)
}

// FormatAmount formats amount with the given marker; an empty marker uses DefaultMarker.
func FormatAmount(amount decimal.Decimal, marker string) string {
	return NewNormalizer(marker).Format(amount)
}
