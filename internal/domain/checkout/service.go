package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/xenking/starship-shop/internal/currency"
	"github.com/xenking/starship-shop/internal/domain/credits"
)

// Cart is the part of the cart store checkout reads and clears.
type Cart interface {
	Len() int
	TotalPrice() currency.Price
	Clear()
}

// Credits is the part of the reward store checkout credits.
type Credits interface {
	Balance() int64
	Add(amount int64) (int64, error)
	Save(ctx context.Context, balance int64) (int64, error)
}

// Config holds checkout behaviour settings.
type Config struct {
	// TaxRate applied to the subtotal. Nil means DefaultTaxRate.
	TaxRate *decimal.Decimal
	// Delay emulates order processing latency.
	Delay time.Duration
	// StrictPersistence keeps the cart and returns the storage error when the
	// new balance cannot be saved.
	StrictPersistence bool
}

// Service places orders. It is the only component that touches both the cart
// and the reward balance.
type Service struct {
	cart    Cart
	credits Credits
	cfg     Config
	taxRate decimal.Decimal
	lg      *zap.Logger
	tracer  trace.Tracer
	now     func() time.Time

	placed metric.Int64Counter
	earned metric.Int64Counter

	// mu serializes credit award and persistence so two orders cannot save
	// balances out of order.
	mu sync.Mutex
}

// Option configures the Service.
type Option func(*options)

type options struct {
	lg     *zap.Logger
	tracer trace.TracerProvider
	meter  metric.MeterProvider
	now    func() time.Time
}

// WithLogger sets the logger.
func WithLogger(lg *zap.Logger) Option {
	return func(o *options) { o.lg = lg }
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracer = tp }
}

// WithMeterProvider sets the meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meter = mp }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// NewService creates a checkout Service.
func NewService(c Cart, cr Credits, cfg Config, opts ...Option) (*Service, error) {
	o := options{
		lg:     zap.NewNop(),
		tracer: tracenoop.NewTracerProvider(),
		meter:  metricnoop.NewMeterProvider(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	taxRate := DefaultTaxRate
	if cfg.TaxRate != nil {
		taxRate = *cfg.TaxRate
	}
	if taxRate.IsNegative() {
		return nil, errors.Errorf("negative tax rate %s", taxRate)
	}

	meter := o.meter.Meter("github.com/xenking/starship-shop/internal/domain/checkout")
	placed, err := meter.Int64Counter("shop.orders.placed",
		metric.WithDescription("Number of orders placed"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "orders counter")
	}
	earned, err := meter.Int64Counter("shop.credits.earned",
		metric.WithDescription("Reward credits awarded at checkout"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "credits counter")
	}

	return &Service{
		cart:    c,
		credits: cr,
		cfg:     cfg,
		taxRate: taxRate,
		lg:      o.lg,
		tracer:  o.tracer.Tracer("github.com/xenking/starship-shop/internal/domain/checkout"),
		now:     o.now,
		placed:  placed,
		earned:  earned,
	}, nil
}

// Summary previews what PlaceOrder would charge and award for the current
// cart.
func (s *Service) Summary() Summary {
	sum, _ := summarize(s.cart.TotalPrice(), s.taxRate)
	return sum
}

// PlaceOrder validates the cart, waits out the processing delay, persists the
// credited balance and clears the cart.
//
// When saving the balance fails the receipt is returned with Persisted=false,
// the in-memory balance still advances and the cart is cleared. With
// StrictPersistence the balance and the cart are left as they were and the
// storage error is returned alongside the receipt, so the same cart can be
// ordered again.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (*Receipt, error) {
	ctx, span := s.tracer.Start(ctx, "checkout.PlaceOrder")
	defer span.End()

	method, err := normalizeMethod(req.PaymentMethod)
	if err != nil {
		return nil, err
	}
	if s.cart.Len() == 0 {
		return nil, &ValidationError{
			Err:     ErrEmptyCart,
			Message: "Please add items to your cart before placing an order.",
		}
	}

	sum, err := summarize(s.cart.TotalPrice(), s.taxRate)
	if err != nil {
		return nil, tooLarge(err)
	}
	span.SetAttributes(
		attribute.String("payment.method", method),
		attribute.Int64("credits.earned", sum.CreditsEarned),
	)

	if err := s.wait(ctx); err != nil {
		span.RecordError(err)
		return nil, errors.Wrap(err, "processing")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	current := s.credits.Balance()
	balance, ok := credits.AddBalance(current, sum.CreditsEarned)
	if !ok {
		return nil, tooLarge(errors.Wrapf(credits.ErrOverflow, "add %d to %d", sum.CreditsEarned, current))
	}
	receipt := &Receipt{
		Summary:       sum,
		PaymentMethod: method,
		Balance:       balance,
		Persisted:     true,
		PlacedAt:      s.now(),
	}

	if _, err := s.credits.Save(ctx, balance); err != nil {
		receipt.Persisted = false
		span.RecordError(err)
		span.SetStatus(codes.Error, "persist credits")
		s.lg.Warn("Credits not persisted after order",
			zap.Int64("balance", balance),
			zap.Error(err),
		)
		if s.cfg.StrictPersistence {
			receipt.Balance = current
			return receipt, errors.Wrap(err, "persist credits")
		}
		if receipt.Balance, err = s.credits.Add(sum.CreditsEarned); err != nil {
			return receipt, errors.Wrap(err, "credit balance")
		}
	}

	s.cart.Clear()
	s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("payment.method", method)))
	s.earned.Add(ctx, sum.CreditsEarned)

	s.lg.Info("Order placed",
		zap.String("total", currency.Format(sum.Total)),
		zap.Int64("credits_earned", sum.CreditsEarned),
		zap.Int64("balance", balance),
		zap.Bool("persisted", receipt.Persisted),
	)
	return receipt, nil
}

func (s *Service) wait(ctx context.Context) error {
	if s.cfg.Delay <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(s.cfg.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
