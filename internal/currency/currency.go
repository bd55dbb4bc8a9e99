// Package currency converts catalog cost units into AED and formats amounts
// for display.
package currency

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xenking/starship-shop/internal/domain/catalog"
)

const (
	// ExchangeRate is the number of catalog cost units per AED.
	ExchangeRate = 10000
	// Code is appended to formatted amounts.
	Code = "AED"
	// UnavailableMarker is rendered in place of a price that cannot be shown.
	UnavailableMarker = "—"
)

var exchangeRate = decimal.NewFromInt(ExchangeRate)

// Price is an AED amount or the "unavailable" marker. The zero value is
// Unavailable.
type Price struct {
	amount decimal.Decimal
	ok     bool
}

// Unavailable is the price of an item without a usable cost.
var Unavailable = Price{}

// Zero is an available zero amount.
var Zero = Price{amount: decimal.Zero, ok: true}

// NewPrice wraps an AED amount. Negative amounts are unavailable.
func NewPrice(amount decimal.Decimal) Price {
	if amount.IsNegative() {
		return Unavailable
	}
	return Price{amount: amount, ok: true}
}

// Amount returns the AED amount and whether it is available.
func (p Price) Amount() (decimal.Decimal, bool) { return p.amount, p.ok }

// Available reports whether the price holds an amount.
func (p Price) Available() bool { return p.ok }

// Mul multiplies an available price by a quantity.
func (p Price) Mul(n int) Price {
	if !p.ok {
		return Unavailable
	}
	return NewPrice(p.amount.Mul(decimal.NewFromInt(int64(n))))
}

// Add sums two prices. An unavailable operand is skipped, so only two
// unavailable prices produce Unavailable.
func (p Price) Add(o Price) Price {
	switch {
	case !p.ok:
		return o
	case !o.ok:
		return p
	}
	return Price{amount: p.amount.Add(o.amount), ok: true}
}

func (p Price) String() string { return Format(p) }

// Convert maps a catalog cost to AED.
func Convert(c catalog.Cost) Price {
	units, ok := c.Units()
	if !ok {
		return Unavailable
	}
	return NewPrice(units.Div(exchangeRate))
}

// ConvertRaw converts an untyped cost value as it might arrive from a decoded
// JSON document: nil, a string, a JSON number or a Go numeric type.
func ConvertRaw(raw any) Price {
	return Convert(costOf(raw))
}

func costOf(raw any) catalog.Cost {
	switch v := raw.(type) {
	case nil:
		return catalog.UnavailableCost("")
	case string:
		return catalog.CostFromString(v)
	case json.Number:
		return catalog.CostFromString(v.String())
	case decimal.Decimal:
		return catalog.CostFromDecimal(v)
	case float64:
		return catalog.CostFromFloat(v)
	case float32:
		return catalog.CostFromFloat(float64(v))
	case int:
		return catalog.CostFromDecimal(decimal.NewFromInt(int64(v)))
	case int64:
		return catalog.CostFromDecimal(decimal.NewFromInt(v))
	case int32:
		return catalog.CostFromDecimal(decimal.NewFromInt(int64(v)))
	case uint64:
		if v == 0 {
			return catalog.UnavailableCost("0")
		}
		return catalog.CostFromString(strconv.FormatUint(v, 10))
	default:
		return catalog.UnavailableCost("")
	}
}

var printer = message.NewPrinter(language.English)

// Format renders an available price with two fraction digits, thousands
// grouping and the currency code, e.g. "1,050.00 AED". Amounts whose whole
// part does not fit in an int64 render as UnavailableMarker.
func Format(p Price) string {
	if !p.ok {
		return UnavailableMarker
	}
	whole, frac, _ := strings.Cut(p.amount.StringFixed(2), ".")
	n, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return UnavailableMarker
	}
	return printer.Sprintf("%d", n) + "." + frac + " " + Code
}
