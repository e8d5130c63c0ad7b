// Package checkout runs the simulated order submission for a session cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/crispydelights/storefront/internal/cart"
	"github.com/crispydelights/storefront/internal/domain"
	"github.com/crispydelights/storefront/internal/notify"
	apperrors "github.com/crispydelights/storefront/pkg/errors"
	"github.com/crispydelights/storefront/pkg/tracing"
)

const (
	DefaultDelay              = 3 * time.Second
	DefaultOrderNumberCeiling = 10000
)

// Notification texts.
const (
	emptyCartTitle       = "Your cart is empty"
	emptyCartDescription = "Please add some items to your cart before checking out."
	processingTitle      = "Processing your order"
	processingDesc       = "Your order is being prepared for shipping. Please wait..."
	confirmedTitle       = "Order confirmed!"
)

var (
	ErrEmptyCart          = apperrors.Unprocessable("EMPTY_CART", "the cart is empty")
	ErrCheckoutInProgress = apperrors.Conflict("CHECKOUT_IN_PROGRESS", "an order is already being submitted")
)

// Cart is the part of cart.Container the orchestrator drives.
type Cart interface {
	SessionID() string
	BeginCheckout(ctx context.Context) ([]domain.LineItem, error)
	EnterShipping(ctx context.Context) error
	LeaveShipping() error
	ClearCart(ctx context.Context)
	SetIsOpen(open bool)
	SetCheckingOut(v bool)
}

// OrderEvents receives confirmed orders. Failures are logged only.
type OrderEvents interface {
	PublishOrderConfirmed(ctx context.Context, sessionID string, c domain.Confirmation) error
}

// Orchestrator moves a cart through the cart, shipping and submitting
// states. It holds no per-session state and is shared by all sessions.
type Orchestrator struct {
	delay       time.Duration
	after       func(time.Duration) <-chan time.Time
	orderNumber func() int
	events      OrderEvents
	logger      *slog.Logger
	tracer      trace.Tracer
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithDelay sets the simulated submission latency.
func WithDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.delay = d }
}

// WithClock replaces time.After, letting tests fire the delay on demand.
func WithClock(after func(time.Duration) <-chan time.Time) Option {
	return func(o *Orchestrator) { o.after = after }
}

// WithOrderNumberCeiling draws order numbers uniformly from [0, n).
func WithOrderNumberCeiling(n int) Option {
	return func(o *Orchestrator) {
		o.orderNumber = func() int { return rand.Intn(n) }
	}
}

// WithOrderNumbers replaces the order number source.
func WithOrderNumbers(next func() int) Option {
	return func(o *Orchestrator) { o.orderNumber = next }
}

// WithEvents publishes order.confirmed events.
func WithEvents(events OrderEvents) Option {
	return func(o *Orchestrator) { o.events = events }
}

// New creates an Orchestrator.
func New(logger *slog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		delay:       DefaultDelay,
		after:       time.After,
		orderNumber: func() int { return rand.Intn(DefaultOrderNumberCeiling) },
		logger:      logger,
		tracer:      tracing.Tracer("github.com/crispydelights/storefront/internal/checkout"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ProceedToShipping moves c to the shipping step. An empty cart stays on
// the cart step and ErrEmptyCart is returned.
func (o *Orchestrator) ProceedToShipping(ctx context.Context, c Cart) error {
	if err := c.EnterShipping(ctx); err != nil {
		if errors.Is(err, cart.ErrEmpty) {
			return ErrEmptyCart
		}
		return fmt.Errorf("enter shipping: %w", err)
	}
	return nil
}

// BackToCart returns c to the cart step. It is refused while an order is
// being submitted.
func (o *Orchestrator) BackToCart(c Cart) error {
	if err := c.LeaveShipping(); err != nil {
		if errors.Is(err, cart.ErrCheckingOut) {
			return ErrCheckoutInProgress
		}
		return fmt.Errorf("leave shipping: %w", err)
	}
	return nil
}

// Checkout submits the order in c for delivery to info, which must already
// be validated. It returns as soon as the submission has started; the
// confirmation arrives through the returned Pending after the simulated
// delay, detached from ctx's cancellation.
//
// An empty cart produces an error notification and ErrEmptyCart. A second
// submission while one is in flight is refused with ErrCheckoutInProgress.
func (o *Orchestrator) Checkout(ctx context.Context, c Cart, sink notify.Sink, info domain.ShippingInfo) (*Pending, error) {
	items, err := c.BeginCheckout(ctx)
	switch {
	case errors.Is(err, cart.ErrEmpty):
		checkoutsTotal.WithLabelValues("empty_cart").Inc()
		sink.Error(ctx, emptyCartTitle, emptyCartDescription)
		return nil, ErrEmptyCart
	case errors.Is(err, cart.ErrCheckingOut):
		checkoutsTotal.WithLabelValues("in_progress").Inc()
		return nil, ErrCheckoutInProgress
	case err != nil:
		return nil, fmt.Errorf("begin checkout: %w", err)
	}

	sink.Info(ctx, processingTitle, processingDesc)

	o.logger.InfoContext(ctx, "order submitted",
		slog.String("session_id", c.SessionID()),
		slog.Int("total_items", domain.TotalItems(items)),
		slog.Duration("delay", o.delay),
	)

	p := newPending()
	checkoutsInFlight.Inc()
	go o.submit(context.WithoutCancel(ctx), c, sink, info, items, p)
	return p, nil
}

func (o *Orchestrator) submit(ctx context.Context, c Cart, sink notify.Sink, info domain.ShippingInfo, items []domain.LineItem, p *Pending) {
	defer checkoutsInFlight.Dec()

	ctx, span := o.tracer.Start(ctx, "checkout.submit",
		trace.WithAttributes(
			attribute.String("session.id", c.SessionID()),
			attribute.Int("cart.total_items", domain.TotalItems(items)),
		),
	)
	defer span.End()

	select {
	case <-o.after(o.delay):
	case <-p.cancel:
		c.SetCheckingOut(false)
		checkoutsTotal.WithLabelValues("canceled").Inc()
		tracing.RecordError(span, context.Canceled)
		o.logger.InfoContext(ctx, "order submission canceled",
			slog.String("session_id", c.SessionID()),
		)
		p.resolve(domain.Confirmation{}, context.Canceled)
		return
	}

	conf := domain.Confirmation{
		OrderNumber: o.orderNumber(),
		ShipTo:      info,
		Items:       items,
		TotalItems:  domain.TotalItems(items),
		TotalPrice:  domain.TotalPrice(items),
	}
	span.SetAttributes(attribute.Int("order.number", conf.OrderNumber))

	sink.Success(ctx, confirmedTitle, confirmationMessage(conf.OrderNumber, info))

	c.ClearCart(ctx)
	c.SetIsOpen(false)
	c.SetCheckingOut(false)

	checkoutsTotal.WithLabelValues("confirmed").Inc()
	o.logger.InfoContext(ctx, "order confirmed",
		slog.String("session_id", c.SessionID()),
		slog.Int("order_number", conf.OrderNumber),
		slog.String("total_price", conf.TotalPrice.StringFixed(2)),
	)

	if o.events != nil {
		if err := o.events.PublishOrderConfirmed(ctx, c.SessionID(), conf); err != nil {
			o.logger.ErrorContext(ctx, "failed to publish order.confirmed event",
				slog.String("session_id", c.SessionID()),
				slog.String("error", err.Error()),
			)
		}
	}

	p.resolve(conf, nil)
}

func confirmationMessage(orderNumber int, info domain.ShippingInfo) string {
	return fmt.Sprintf("Your order #%d has been confirmed and will be shipped to %s at %s, %s.",
		orderNumber, info.FullName, info.Address, info.City)
}
