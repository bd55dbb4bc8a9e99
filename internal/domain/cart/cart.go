// Package cart holds the session cart: one line per catalog item with a
// bounded quantity.
package cart

import (
	"sort"
	"sync"

	"github.com/xenking/starship-shop/internal/currency"
	"github.com/xenking/starship-shop/internal/domain/catalog"
)

// MaxQuantity is the largest quantity a single line may hold.
const MaxQuantity = 5

// Line pairs an item snapshot with its quantity. A stored line always has
// 1 <= Quantity <= MaxQuantity.
type Line struct {
	Item     catalog.Item
	Quantity int
}

// UnitPrice returns the converted price of a single unit.
func (l Line) UnitPrice() currency.Price {
	return currency.Convert(l.Item.Cost)
}

// Subtotal returns the unit price times the quantity.
func (l Line) Subtotal() currency.Price {
	return l.UnitPrice().Mul(l.Quantity)
}

// Store is the in-memory cart. Operations never fail: out-of-range requests
// are ignored.
type Store struct {
	mu    sync.Mutex
	lines map[string]*Line
}

// NewStore returns an empty cart.
func NewStore() *Store {
	return &Store{lines: make(map[string]*Line)}
}

// Add puts one more unit of item into the cart, creating the line on first
// add. A line already at MaxQuantity is left unchanged.
func (s *Store) Add(item catalog.Item) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if l, ok := s.lines[item.ID]; ok {
		if l.Quantity < MaxQuantity {
			l.Quantity++
		}
		return
	}
	s.lines[item.ID] = &Line{Item: item, Quantity: 1}
}

// Remove takes one unit away, deleting the line when its last unit goes.
func (s *Store) Remove(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.lines[id]
	if !ok {
		return
	}
	if l.Quantity > 1 {
		l.Quantity--
		return
	}
	delete(s.lines, id)
}

// SetQuantity sets an existing line's quantity exactly. n <= 0 deletes the
// line; n above MaxQuantity is ignored; an absent line is never created.
func (s *Store) SetQuantity(id string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case n <= 0:
		delete(s.lines, id)
	case n <= MaxQuantity:
		if l, ok := s.lines[id]; ok {
			l.Quantity = n
		}
	}
}

// Clear removes all lines.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.lines)
}

// Len returns the number of lines.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lines)
}

// QuantityOf returns the quantity for id, or 0 when absent.
func (s *Store) QuantityOf(id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.lines[id]; ok {
		return l.Quantity
	}
	return 0
}

// Line returns a copy of the line for id.
func (s *Store) Line(id string) (Line, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.lines[id]
	if !ok {
		return Line{}, false
	}
	return *l, true
}

// Lines returns copies of all lines ordered by item id.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Line, 0, len(s.lines))
	for _, l := range s.lines {
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Item.ID < out[j].Item.ID })
	return out
}

// TotalQuantity is the sum of line quantities.
func (s *Store) TotalQuantity() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums the subtotals of lines with a known price. Lines without a
// price are skipped; the result is always available.
func (s *Store) TotalPrice() currency.Price {
	s.mu.Lock()
	defer s.mu.Unlock()

	total := currency.Zero
	for _, l := range s.lines {
		total = total.Add(l.Subtotal())
	}
	return total
}
