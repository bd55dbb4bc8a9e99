package cart

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/starship-shop/internal/domain/catalog"
)

// --- Helpers ---

// newItem returns an item whose unit price is aed, or an unpriced one when
// aed is empty.
func newItem(id, aed string) catalog.Item {
	cost := catalog.UnavailableCost("unknown")
	if aed != "" {
		units := decimal.RequireFromString(aed).Mul(decimal.NewFromInt(10000))
		cost = catalog.CostFromDecimal(units)
	}
	return catalog.Item{ID: id, Name: "Ship " + id, Cost: cost}
}

func totalOf(t *testing.T, s *Store) decimal.Decimal {
	t.Helper()
	amount, ok := s.TotalPrice().Amount()
	require.True(t, ok)
	return amount
}

// --- Tests ---

func TestAdd_CreatesLine(t *testing.T) {
	s := NewStore()
	s.Add(newItem("2", "10"))

	assert.Equal(t, 1, s.QuantityOf("2"))
	assert.Equal(t, 1, s.Len())

	l, ok := s.Line("2")
	require.True(t, ok)
	assert.Equal(t, "Ship 2", l.Item.Name)
}

func TestAdd_CapsAtMaxQuantity(t *testing.T) {
	s := NewStore()
	item := newItem("2", "10")
	for range MaxQuantity + 3 {
		s.Add(item)
	}

	assert.Equal(t, MaxQuantity, s.QuantityOf("2"))
	assert.Equal(t, MaxQuantity, s.TotalQuantity())
}

func TestAddRemove_RoundTrip(t *testing.T) {
	s := NewStore()
	s.Add(newItem("2", "10"))
	s.Remove("2")

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.QuantityOf("2"))
	_, ok := s.Line("2")
	assert.False(t, ok)
}

func TestRemove(t *testing.T) {
	s := NewStore()
	item := newItem("2", "10")
	s.Add(item)
	s.Add(item)
	s.Add(item)

	s.Remove("2")
	assert.Equal(t, 2, s.QuantityOf("2"))

	// Absent ids are ignored.
	s.Remove("missing")
	assert.Equal(t, 1, s.Len())
}

func TestSetQuantity(t *testing.T) {
	tests := []struct {
		name    string
		prior   int // 0 means absent
		n       int
		want    int
		present bool
	}{
		{name: "zero deletes", prior: 4, n: 0, want: 0},
		{name: "negative deletes", prior: 1, n: -3, want: 0},
		{name: "zero on absent stays absent", prior: 0, n: 0, want: 0},
		{name: "sets exactly", prior: 1, n: 4, want: 4, present: true},
		{name: "max allowed", prior: 2, n: MaxQuantity, want: MaxQuantity, present: true},
		{name: "above max ignored", prior: 2, n: MaxQuantity + 1, want: 2, present: true},
		{name: "absent not created", prior: 0, n: 3, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore()
			item := newItem("9", "1")
			for range tt.prior {
				s.Add(item)
			}

			s.SetQuantity("9", tt.n)

			assert.Equal(t, tt.want, s.QuantityOf("9"))
			_, ok := s.Line("9")
			assert.Equal(t, tt.present, ok)
		})
	}
}

func TestClear(t *testing.T) {
	s := NewStore()
	s.Add(newItem("1", "10"))
	s.Add(newItem("2", "20"))
	s.Clear()

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, 0, s.TotalQuantity())
	assert.True(t, decimal.Zero.Equal(totalOf(t, s)))
}

func TestTotalPrice(t *testing.T) {
	s := NewStore()
	item := newItem("1", "10.00")
	s.Add(item)
	s.Add(item)
	s.Add(item)
	assert.True(t, decimal.RequireFromString("30.00").Equal(totalOf(t, s)))

	// An unpriced line is skipped.
	s.Add(newItem("2", ""))
	assert.True(t, decimal.RequireFromString("30.00").Equal(totalOf(t, s)))
	assert.Equal(t, 4, s.TotalQuantity())
}

func TestTotalPrice_EmptyIsZero(t *testing.T) {
	assert.True(t, decimal.Zero.Equal(totalOf(t, NewStore())))
}

func TestLines_SortedCopies(t *testing.T) {
	s := NewStore()
	s.Add(newItem("3", "1"))
	s.Add(newItem("1", "1"))
	s.Add(newItem("2", "1"))

	lines := s.Lines()
	require.Len(t, lines, 3)
	assert.Equal(t, "1", lines[0].Item.ID)
	assert.Equal(t, "2", lines[1].Item.ID)
	assert.Equal(t, "3", lines[2].Item.ID)

	// Mutating the copy leaves the store untouched.
	lines[0].Quantity = 5
	assert.Equal(t, 1, s.QuantityOf("1"))
}

func TestLine_Subtotal(t *testing.T) {
	l := Line{Item: newItem("1", "50.00"), Quantity: 2}
	amount, ok := l.Subtotal().Amount()
	require.True(t, ok)
	assert.True(t, decimal.RequireFromString("100").Equal(amount))

	assert.False(t, Line{Item: newItem("2", ""), Quantity: 2}.Subtotal().Available())
}
