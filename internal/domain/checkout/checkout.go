// Package checkout turns the cart into an order receipt and awards reward
// credits for it.
package checkout

import (
	"fmt"
	"math"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/starship-shop/internal/currency"
)

// CreditConversion is the number of reward credits earned per AED spent.
const CreditConversion = 10000

// DefaultTaxRate is applied when Config.TaxRate is nil.
var DefaultTaxRate = decimal.RequireFromString("0.05")

// Payment methods offered at checkout.
const (
	PaymentCreditCard = "Credit Card"
	PaymentPayPal     = "PayPal"
)

// PaymentMethods lists the accepted payment methods in display order.
var PaymentMethods = []string{PaymentCreditCard, PaymentPayPal}

// Sentinel errors wrapped by ValidationError.
var (
	ErrEmptyCart            = errors.New("cart is empty")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrAmountTooLarge       = errors.New("order amount too large")
)

// ValidationError rejects an order before any state is touched. Message is
// meant for the user.
type ValidationError struct {
	Err     error
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Err, e.Message)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	PaymentMethod string
}

// Summary is the price breakdown of the current cart.
type Summary struct {
	Subtotal      currency.Price
	Tax           currency.Price
	Total         currency.Price
	// CreditsEarned is 0 when the award does not fit in an int64; such an
	// order is rejected with ErrAmountTooLarge.
	CreditsEarned int64
}

// Receipt describes a placed order.
type Receipt struct {
	Summary
	PaymentMethod string
	// Balance is the in-memory reward balance after crediting.
	Balance int64
	// Persisted is false when the new balance could not be written.
	Persisted bool
	PlacedAt  time.Time
}

var maxCredits = decimal.NewFromInt(math.MaxInt64)

// summarize computes tax, total and the credit award for a subtotal. The
// returned error wraps ErrAmountTooLarge when the award is not representable.
func summarize(subtotal currency.Price, taxRate decimal.Decimal) (Summary, error) {
	amount, ok := subtotal.Amount()
	if !ok {
		amount = decimal.Zero
	}
	tax := amount.Mul(taxRate)
	total := amount.Add(tax)
	sum := Summary{
		Subtotal: currency.NewPrice(amount),
		Tax:      currency.NewPrice(tax),
		Total:    currency.NewPrice(total),
	}

	earned := total.Mul(decimal.NewFromInt(CreditConversion)).Round(0)
	if earned.GreaterThan(maxCredits) {
		return sum, errors.Wrapf(ErrAmountTooLarge, "credits for %s", total)
	}
	sum.CreditsEarned = earned.IntPart()
	return sum, nil
}

func tooLarge(err error) *ValidationError {
	return &ValidationError{
		Err:     err,
		Message: "This order is too large to be placed.",
	}
}

func normalizeMethod(method string) (string, error) {
	if method == "" {
		return PaymentCreditCard, nil
	}
	for _, m := range PaymentMethods {
		if m == method {
			return m, nil
		}
	}
	return "", &ValidationError{
		Err:     ErrUnknownPaymentMethod,
		Message: fmt.Sprintf("Payment method %q is not supported.", method),
	}
}
