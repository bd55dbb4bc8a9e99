// Package shop dispatches user intents to the catalog, cart, credits and
// checkout components, applying minimum-interval gates on repeated taps.
package shop

import (
	"context"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/go-faster/errors"
	"go.uber.org/zap"

	"github.com/xenking/starship-shop/internal/currency"
	"github.com/xenking/starship-shop/internal/domain/cart"
	"github.com/xenking/starship-shop/internal/domain/catalog"
	"github.com/xenking/starship-shop/internal/domain/checkout"
	"github.com/xenking/starship-shop/internal/domain/credits"
	"github.com/xenking/starship-shop/pkg/gate"
)

// Intent errors.
var (
	ErrUnknownItem      = errors.New("unknown item")
	ErrThrottled        = errors.New("too many requests for this item, try again shortly")
	ErrPriceUnavailable = errors.New("price unavailable")
	ErrOrderInProgress  = errors.New("an order is already being placed")
)

// Default gate settings.
const (
	DefaultCartInterval   = 300 * time.Millisecond
	DefaultSearchInterval = 600 * time.Millisecond
	DefaultMinQueryLength = 2
)

const searchKey = "search"

// Config holds gate settings. Zero values select the defaults; a negative
// interval disables the gate.
type Config struct {
	CartInterval   time.Duration
	SearchInterval time.Duration
	MinQueryLength int
}

// State is everything the presentation layer renders.
type State struct {
	Catalog       catalog.State
	Cart          []cart.Line
	TotalQuantity int
	TotalPrice    currency.Price
	Summary       checkout.Summary
	Credits       credits.State
	Ordering      bool
}

// Shop is safe for concurrent use.
type Shop struct {
	browser  *catalog.Browser
	cart     *cart.Store
	credits  *credits.Store
	checkout *checkout.Service
	lg       *zap.Logger

	cartGate       *gate.Gate
	searchGate     *gate.Gate
	minQueryLength int

	ordering atomic.Bool
}

// Option configures a Shop.
type Option func(*options)

type options struct {
	lg  *zap.Logger
	now func() time.Time
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithClock overrides the gate clock.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates a Shop over already constructed components.
func New(
	b *catalog.Browser,
	c *cart.Store,
	cr *credits.Store,
	co *checkout.Service,
	cfg Config,
	opts ...Option,
) *Shop {
	o := options{lg: zap.NewNop(), now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if cfg.CartInterval == 0 {
		cfg.CartInterval = DefaultCartInterval
	}
	if cfg.SearchInterval == 0 {
		cfg.SearchInterval = DefaultSearchInterval
	}
	if cfg.MinQueryLength <= 0 {
		cfg.MinQueryLength = DefaultMinQueryLength
	}
	return &Shop{
		browser:        b,
		cart:           c,
		credits:        cr,
		checkout:       co,
		lg:             o.lg,
		cartGate:       gate.New(cfg.CartInterval, gate.WithClock(o.now)),
		searchGate:     gate.New(cfg.SearchInterval, gate.WithClock(o.now)),
		minQueryLength: cfg.MinQueryLength,
	}
}

// AddItem adds one unit of a loaded catalog item to the cart and returns the
// resulting line. Items without a usable price cannot enter the cart, but a
// line already in the cart can still grow.
func (s *Shop) AddItem(id string) (cart.Line, error) {
	item, ok := s.browser.Lookup(id)
	if !ok {
		if l, inCart := s.cart.Line(id); inCart {
			item = l.Item
		} else {
			return cart.Line{}, errors.Wrapf(ErrUnknownItem, "item %q", id)
		}
	}
	if s.cart.QuantityOf(id) == 0 && !item.Cost.Known() {
		return cart.Line{}, errors.Wrapf(ErrPriceUnavailable, "item %q", id)
	}
	if !s.cartGate.Allow("add:" + id) {
		return cart.Line{}, ErrThrottled
	}
	s.cart.Add(item)
	l, _ := s.cart.Line(id)
	return l, nil
}

// RemoveItem takes one unit of id out of the cart. The returned line has
// Quantity 0 when the last unit was removed.
func (s *Shop) RemoveItem(id string) (cart.Line, error) {
	l, ok := s.cart.Line(id)
	if !ok {
		return cart.Line{}, errors.Wrapf(ErrUnknownItem, "item %q not in cart", id)
	}
	if !s.cartGate.Allow("remove:" + id) {
		return cart.Line{}, ErrThrottled
	}
	s.cart.Remove(id)
	if updated, ok := s.cart.Line(id); ok {
		return updated, nil
	}
	l.Quantity = 0
	return l, nil
}

// SetQuantity sets the quantity of a line already in the cart. Out-of-range
// quantities above cart.MaxQuantity leave the line unchanged.
func (s *Shop) SetQuantity(id string, n int) (cart.Line, error) {
	l, ok := s.cart.Line(id)
	if !ok {
		return cart.Line{}, errors.Wrapf(ErrUnknownItem, "item %q not in cart", id)
	}
	s.cart.SetQuantity(id, n)
	if updated, ok := s.cart.Line(id); ok {
		return updated, nil
	}
	l.Quantity = 0
	return l, nil
}

// ClearCart empties the cart.
func (s *Shop) ClearCart() {
	s.cart.Clear()
}

// PlaceOrder runs checkout. Only one order may be in flight at a time.
func (s *Shop) PlaceOrder(ctx context.Context, method string) (*checkout.Receipt, error) {
	if !s.ordering.CompareAndSwap(false, true) {
		return nil, ErrOrderInProgress
	}
	defer s.ordering.Store(false)

	return s.checkout.PlaceOrder(ctx, checkout.PlaceOrderRequest{PaymentMethod: method})
}

// Search issues a catalog search for query. A blank query clears the results;
// a query shorter than the minimum length is ignored.
func (s *Shop) Search(ctx context.Context, query string) error {
	query = strings.TrimSpace(query)
	if query == "" {
		s.ClearSearch()
		return nil
	}
	if utf8.RuneCountInString(query) < s.minQueryLength {
		s.lg.Debug("Search query too short", zap.String("query", query))
		return nil
	}
	release, ok := s.searchGate.Acquire(searchKey)
	if !ok {
		return ErrThrottled
	}
	defer release()
	return s.browser.Search(ctx, query)
}

// ClearSearch drops search results and re-arms the search gate.
func (s *Shop) ClearSearch() {
	s.browser.ClearSearch()
	s.searchGate.Reset(searchKey)
}

// FetchPage loads a catalog page.
func (s *Shop) FetchPage(ctx context.Context, page int) error {
	return s.browser.FetchPage(ctx, page)
}

// LoadCredits reads the persisted reward balance.
func (s *Shop) LoadCredits(ctx context.Context) (int64, error) {
	return s.credits.Load(ctx)
}

// ResetCredits zeroes the in-memory reward balance. The persisted value is
// overwritten by the next order.
func (s *Shop) ResetCredits() {
	s.credits.Reset()
}

// Ping checks the credits storage.
func (s *Shop) Ping(ctx context.Context) error {
	return s.credits.Ping(ctx)
}

// Snapshot returns the current state of every component.
func (s *Shop) Snapshot() State {
	return State{
		Catalog:       s.browser.Snapshot(),
		Cart:          s.cart.Lines(),
		TotalQuantity: s.cart.TotalQuantity(),
		TotalPrice:    s.cart.TotalPrice(),
		Summary:       s.checkout.Summary(),
		Credits:       s.credits.Snapshot(),
		Ordering:      s.ordering.Load(),
	}
}
