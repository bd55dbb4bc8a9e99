// Package catalog models starships fetched from the public catalog and the
// browsing state built on top of them.
package catalog

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sentinel cost strings used by the catalog for "no price available".
const (
	CostUnknown = "unknown"
	CostNA      = "n/a"
)

// MaxCostUnits is the largest cost accepted from the catalog. Larger values
// are unavailable so prices and credit awards stay within int64.
var MaxCostUnits = decimal.New(1, 15)

// Item is an immutable snapshot of a catalog entry.
type Item struct {
	ID            string
	Name          string
	Model         string
	Manufacturer  string
	StarshipClass string
	URL           string
	Cost          Cost
}

// Cost is the catalog's untyped cost field narrowed at ingestion into either
// a known, finite, non-negative number of cost units or "unavailable".
type Cost struct {
	units decimal.Decimal
	known bool
	raw   string
}

// UnavailableCost returns a Cost without a usable value. The raw text is kept
// for display only.
func UnavailableCost(raw string) Cost {
	return Cost{raw: raw}
}

// CostFromString parses a numeric string, optionally containing "," grouping
// characters. Empty strings, the sentinels and anything that does not parse
// to a non-negative number no larger than MaxCostUnits are unavailable.
func CostFromString(s string) Cost {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || trimmed == CostUnknown || trimmed == CostNA {
		return UnavailableCost(s)
	}
	d, err := decimal.NewFromString(strings.ReplaceAll(trimmed, ",", ""))
	if err != nil || !inRange(d) {
		return UnavailableCost(s)
	}
	return Cost{units: d, known: true, raw: s}
}

// CostFromFloat converts a JSON number. Zero is treated as absent, as are
// NaN, infinities, negative values and values above MaxCostUnits.
func CostFromFloat(f float64) Cost {
	if f == 0 || math.IsNaN(f) || math.IsInf(f, 0) {
		return UnavailableCost(formatFloat(f))
	}
	d := decimal.NewFromFloat(f)
	if !inRange(d) {
		return UnavailableCost(formatFloat(f))
	}
	return Cost{units: d, known: true, raw: formatFloat(f)}
}

// CostFromDecimal converts an exact numeric value, with the same rules as
// CostFromFloat.
func CostFromDecimal(d decimal.Decimal) Cost {
	if d.IsZero() || !inRange(d) {
		return UnavailableCost(d.String())
	}
	return Cost{units: d, known: true, raw: d.String()}
}

func inRange(d decimal.Decimal) bool {
	return !d.IsNegative() && d.LessThanOrEqual(MaxCostUnits)
}

// Units returns the cost in catalog units and whether it is known.
func (c Cost) Units() (decimal.Decimal, bool) {
	return c.units, c.known
}

// Known reports whether the cost has a usable value.
func (c Cost) Known() bool { return c.known }

// Raw returns the text the catalog sent.
func (c Cost) Raw() string { return c.raw }

func (c Cost) String() string {
	if !c.known {
		return "unavailable(" + c.raw + ")"
	}
	return c.units.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

var trailingID = regexp.MustCompile(`/(\d+)/$`)

// DeriveID extracts the trailing numeric path segment of a canonical resource
// URL ("https://swapi.dev/api/starships/12/" yields "12"). When the URL has no
// such segment, a deterministic name-based UUID of the URL (or of the name when
// the URL is empty) is used so the identifier is stable across fetches.
func DeriveID(resourceURL, name string) string {
	if m := trailingID.FindStringSubmatch(resourceURL); m != nil {
		return m[1]
	}
	seed := resourceURL
	if seed == "" {
		seed = name
	}
	return "x-" + uuid.NewSHA1(uuid.NameSpaceURL, []byte(seed)).String()
}

// Page is one page of the paginated catalog listing.
type Page struct {
	Items    []Item
	Next     string
	Previous string
	Count    int
}

// HasMore reports whether the catalog advertised a next page.
func (p *Page) HasMore() bool { return p.Next != "" }

// Client is the read-only catalog API.
type Client interface {
	FetchPage(ctx context.Context, page int) (*Page, error)
	Search(ctx context.Context, query string) ([]Item, error)
}

// NetworkError indicates a failed catalog request: either a transport failure
// or a non-2xx response.
type NetworkError struct {
	Op     string
	Status int
	Err    error
}

func (e *NetworkError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return e.Op + ": request failed"
}

func (e *NetworkError) Unwrap() error { return e.Err }
