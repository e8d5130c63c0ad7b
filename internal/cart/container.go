// Package cart holds the per-session cart state and keeps its persisted
// snapshot in step with it.
package cart

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/crispydelights/storefront/internal/domain"
	"github.com/crispydelights/storefront/internal/repository"
	apperrors "github.com/crispydelights/storefront/pkg/errors"
)

var (
	ErrEmpty       = errors.New("cart is empty")
	ErrCheckingOut = errors.New("checkout in progress")
)

// EventPublisher receives cart change events. Failures are logged only.
type EventPublisher interface {
	PublishCartUpdated(ctx context.Context, sessionID string, items []domain.LineItem) error
	PublishCartCleared(ctx context.Context, sessionID string) error
}

// Container is the single owner of one session's cart. All methods are
// safe for concurrent use and are applied one at a time.
//
// The persisted snapshot is read on first use. A load that fails for any
// reason other than a missing key is retried by the next operation. After
// that every change to the item list writes it back: a non-empty cart is
// saved and an empty cart is deleted. Write failures never reach the caller.
//
// Change events are published while the lock is held so that consumers see
// them in the order the changes were applied.
type Container struct {
	sessionID string
	key       string
	store     repository.SnapshotStore
	events    EventPublisher
	logger    *slog.Logger

	mu          sync.Mutex
	hydrated    bool
	items       []domain.LineItem
	isOpen      bool
	step        domain.CheckoutStep
	checkingOut bool
}

// New creates a container for sessionID whose snapshot lives under key.
// events may be nil.
func New(sessionID, key string, store repository.SnapshotStore, events EventPublisher, logger *slog.Logger) *Container {
	return &Container{
		sessionID: sessionID,
		key:       key,
		store:     store,
		events:    events,
		logger:    logger.With(slog.String("session_id", sessionID)),
		step:      domain.StepCart,
	}
}

// SessionID returns the session this container belongs to.
func (c *Container) SessionID() string { return c.sessionID }

// Hydrate loads the persisted snapshot if that has not happened yet. A
// missing or unreadable snapshot yields an empty cart.
func (c *Container) Hydrate(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)
}

func (c *Container) hydrateLocked(ctx context.Context) {
	if c.hydrated {
		return
	}

	data, err := c.store.Load(ctx, c.key)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.hydrated = true
			return
		}
		c.logger.WarnContext(ctx, "failed to load cart snapshot, will retry",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		return
	}
	c.hydrated = true

	items, err := domain.DecodeSnapshot(data)
	if err != nil {
		snapshotsRejectedTotal.Inc()
		c.logger.WarnContext(ctx, "discarding malformed cart snapshot",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
		return
	}
	c.items = items
}

// AddItem adds one unit of entry and opens the cart on the cart step. A
// line already at domain.MaxQuantity is left unchanged.
func (c *Container) AddItem(ctx context.Context, entry domain.CatalogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	c.isOpen = true
	c.step = domain.StepCart

	if i := c.indexOf(entry.ID); i >= 0 {
		if c.items[i].Quantity >= domain.MaxQuantity {
			return
		}
		c.items[i].Quantity++
	} else {
		c.items = append(c.items, domain.NewLineItem(entry))
	}

	c.publish(ctx, c.commitLocked(ctx, "add_item"))
}

// RemoveItem deletes the line with id. Unknown ids are ignored.
func (c *Container) RemoveItem(ctx context.Context, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	i := c.indexOf(id)
	if i < 0 {
		return
	}
	c.items = slices.Delete(c.items, i, i+1)

	c.publish(ctx, c.commitLocked(ctx, "remove_item"))
}

// UpdateQuantity sets the quantity of the line with id. A quantity of zero
// or less removes the line and one above domain.MaxQuantity is clamped.
// Unknown ids are ignored.
func (c *Container) UpdateQuantity(ctx context.Context, id, quantity int) {
	if quantity <= 0 {
		c.RemoveItem(ctx, id)
		return
	}
	quantity = min(quantity, domain.MaxQuantity)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	i := c.indexOf(id)
	if i < 0 || c.items[i].Quantity == quantity {
		return
	}
	c.items[i].Quantity = quantity

	c.publish(ctx, c.commitLocked(ctx, "update_quantity"))
}

// ClearCart empties the cart and deletes its snapshot, even when the cart
// was already empty.
func (c *Container) ClearCart(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	c.items = nil
	c.step = domain.StepCart
	c.deleteSnapshot(ctx)
	cartOperationsTotal.WithLabelValues("clear_cart").Inc()

	if c.events != nil {
		if err := c.events.PublishCartCleared(ctx, c.sessionID); err != nil {
			c.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
				slog.String("error", err.Error()),
			)
		}
	}
}

// SetIsOpen shows or hides the cart panel.
func (c *Container) SetIsOpen(open bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.isOpen = open
}

// SetCheckoutStep moves the checkout flow to step. It does not check that
// the cart has items; callers that need that guard enforce it.
func (c *Container) SetCheckoutStep(step domain.CheckoutStep) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.step = step
}

// SetCheckingOut flags an in-flight order submission.
func (c *Container) SetCheckingOut(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checkingOut = v
}

// BeginCheckout flags an order submission and returns the items being
// ordered. It fails with ErrEmpty when there is nothing to order and with
// ErrCheckingOut when a submission is already in flight.
func (c *Container) BeginCheckout(ctx context.Context) ([]domain.LineItem, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	if len(c.items) == 0 {
		return nil, ErrEmpty
	}
	if c.checkingOut {
		return nil, ErrCheckingOut
	}
	c.checkingOut = true
	return c.copyItems(), nil
}

// EnterShipping moves to the shipping step unless the cart is empty.
func (c *Container) EnterShipping(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	if len(c.items) == 0 {
		return ErrEmpty
	}
	c.step = domain.StepShipping
	return nil
}

// LeaveShipping returns to the cart step unless an order is being submitted.
func (c *Container) LeaveShipping() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.checkingOut {
		return ErrCheckingOut
	}
	c.step = domain.StepCart
	return nil
}

// State returns a snapshot of the cart with its derived totals.
func (c *Container) State(ctx context.Context) domain.CartState {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)

	items := c.copyItems()
	return domain.CartState{
		Items:         items,
		IsOpen:        c.isOpen,
		CheckoutStep:  c.step,
		IsCheckingOut: c.checkingOut,
		TotalItems:    domain.TotalItems(items),
		TotalPrice:    domain.TotalPrice(items),
	}
}

// Items returns a copy of the current line items.
func (c *Container) Items(ctx context.Context) []domain.LineItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hydrateLocked(ctx)
	return c.copyItems()
}

// CheckingOut reports whether an order submission is in flight.
func (c *Container) CheckingOut() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkingOut
}

func (c *Container) indexOf(id int) int {
	return slices.IndexFunc(c.items, func(it domain.LineItem) bool { return it.ID == id })
}

func (c *Container) copyItems() []domain.LineItem {
	out := make([]domain.LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// commitLocked persists the item list after a change and returns a copy of
// it for event publishing.
func (c *Container) commitLocked(ctx context.Context, op string) []domain.LineItem {
	cartOperationsTotal.WithLabelValues(op).Inc()

	if len(c.items) == 0 {
		c.step = domain.StepCart
		c.deleteSnapshot(ctx)
		return nil
	}

	data, err := domain.EncodeSnapshot(c.items)
	if err == nil {
		err = c.store.Save(ctx, c.key, data)
	}
	if err != nil {
		storeWriteFailuresTotal.WithLabelValues("save").Inc()
		c.logger.DebugContext(ctx, "cart snapshot save failed",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
	}
	return c.copyItems()
}

func (c *Container) deleteSnapshot(ctx context.Context) {
	if err := c.store.Delete(ctx, c.key); err != nil {
		storeWriteFailuresTotal.WithLabelValues("delete").Inc()
		c.logger.DebugContext(ctx, "cart snapshot delete failed",
			slog.String("key", c.key),
			slog.String("error", err.Error()),
		)
	}
}

func (c *Container) publish(ctx context.Context, items []domain.LineItem) {
	if c.events == nil {
		return
	}
	if err := c.events.PublishCartUpdated(ctx, c.sessionID, items); err != nil {
		c.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("error", err.Error()),
		)
	}
}
