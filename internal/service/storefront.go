package service

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/crispydelights/storefront/internal/cart"
	"github.com/crispydelights/storefront/internal/catalog"
	"github.com/crispydelights/storefront/internal/checkout"
	"github.com/crispydelights/storefront/internal/domain"
	"github.com/crispydelights/storefront/internal/notify"
	"github.com/crispydelights/storefront/internal/repository"
	apperrors "github.com/crispydelights/storefront/pkg/errors"
	"github.com/crispydelights/storefront/pkg/validator"
)

// AddItemInput holds the parameters for adding a menu item to the cart.
type AddItemInput struct {
	ID int `json:"id" validate:"required,gt=0"`
}

// UpdateQuantityInput holds the new absolute quantity of a line. Zero or
// negative removes the line.
type UpdateQuantityInput struct {
	Quantity *int `json:"quantity" validate:"required,lte=999"`
}

// SetOpenInput toggles the cart panel.
type SetOpenInput struct {
	Open *bool `json:"open" validate:"required"`
}

// SetStepInput moves the checkout flow.
type SetStepInput struct {
	Step string `json:"step" validate:"required,oneof=cart shipping"`
}

// Config holds storefront tuning.
type Config struct {
	// SnapshotKey prefixes the per-session snapshot key ("<prefix>:<session>").
	SnapshotKey string
	// IdleTimeout is how long an untouched session stays in memory.
	IdleTimeout time.Duration
}

type session struct {
	cart     *cart.Container
	sink     *notify.SessionSink
	lastSeen time.Time
}

// Storefront owns every session cart held in memory and routes operations
// to them. A session is created on first use and hydrated from its
// persisted snapshot.
type Storefront struct {
	catalog      catalog.Catalog
	store        repository.SnapshotStore
	cartEvents   cart.EventPublisher
	orchestrator *checkout.Orchestrator
	dispatcher   *notify.Dispatcher
	inbox        *notify.InboxPublisher
	cfg          Config
	logger       *slog.Logger
	now          func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
}

// NewStorefront creates a storefront service. cartEvents may be nil.
func NewStorefront(
	cat catalog.Catalog,
	store repository.SnapshotStore,
	cartEvents cart.EventPublisher,
	orchestrator *checkout.Orchestrator,
	dispatcher *notify.Dispatcher,
	inbox *notify.InboxPublisher,
	cfg Config,
	logger *slog.Logger,
) *Storefront {
	return &Storefront{
		catalog:      cat,
		store:        store,
		cartEvents:   cartEvents,
		orchestrator: orchestrator,
		dispatcher:   dispatcher,
		inbox:        inbox,
		cfg:          cfg,
		logger:       logger,
		now:          time.Now,
		sessions:     make(map[string]*session),
	}
}

// Menu lists the catalog.
func (s *Storefront) Menu() []domain.CatalogEntry {
	return s.catalog.List()
}

// Cart returns the cart of sessionID.
func (s *Storefront) Cart(ctx context.Context, sessionID string) (domain.CartState, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	return sess.cart.State(ctx), nil
}

// AddItem adds one unit of the menu item id.
func (s *Storefront) AddItem(ctx context.Context, sessionID string, input AddItemInput) (domain.CartState, error) {
	if err := validator.Validate(input); err != nil {
		return domain.CartState{}, err
	}

	entry, ok := s.catalog.Lookup(input.ID)
	if !ok {
		return domain.CartState{}, apperrors.NotFound("menu item", strconv.Itoa(input.ID))
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	sess.cart.AddItem(ctx, entry)

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("session_id", sessionID),
		slog.Int("item_id", entry.ID),
	)
	return sess.cart.State(ctx), nil
}

// RemoveItem removes the line id. Unknown ids are ignored.
func (s *Storefront) RemoveItem(ctx context.Context, sessionID string, id int) (domain.CartState, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	sess.cart.RemoveItem(ctx, id)

	s.logger.InfoContext(ctx, "item removed from cart",
		slog.String("session_id", sessionID),
		slog.Int("item_id", id),
	)
	return sess.cart.State(ctx), nil
}

// UpdateQuantity sets the quantity of line id.
func (s *Storefront) UpdateQuantity(ctx context.Context, sessionID string, id int, input UpdateQuantityInput) (domain.CartState, error) {
	if err := validator.Validate(input); err != nil {
		return domain.CartState{}, err
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	sess.cart.UpdateQuantity(ctx, id, *input.Quantity)

	s.logger.InfoContext(ctx, "cart item quantity updated",
		slog.String("session_id", sessionID),
		slog.Int("item_id", id),
		slog.Int("quantity", *input.Quantity),
	)
	return sess.cart.State(ctx), nil
}

// ClearCart empties the cart.
func (s *Storefront) ClearCart(ctx context.Context, sessionID string) (domain.CartState, error) {
	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	sess.cart.ClearCart(ctx)

	s.logger.InfoContext(ctx, "cart cleared", slog.String("session_id", sessionID))
	return sess.cart.State(ctx), nil
}

// SetOpen shows or hides the cart panel.
func (s *Storefront) SetOpen(ctx context.Context, sessionID string, input SetOpenInput) (domain.CartState, error) {
	if err := validator.Validate(input); err != nil {
		return domain.CartState{}, err
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}
	sess.cart.SetIsOpen(*input.Open)
	return sess.cart.State(ctx), nil
}

// SetStep moves between the cart and shipping steps. Moving to shipping
// requires a non-empty cart; moving back is refused while an order is being
// submitted.
func (s *Storefront) SetStep(ctx context.Context, sessionID string, input SetStepInput) (domain.CartState, error) {
	if err := validator.Validate(input); err != nil {
		return domain.CartState{}, err
	}
	step, err := domain.ParseCheckoutStep(input.Step)
	if err != nil {
		return domain.CartState{}, apperrors.InvalidInput(err.Error())
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return domain.CartState{}, err
	}

	switch step {
	case domain.StepShipping:
		err = s.orchestrator.ProceedToShipping(ctx, sess.cart)
	default:
		err = s.orchestrator.BackToCart(sess.cart)
	}
	if err != nil {
		return domain.CartState{}, err
	}
	return sess.cart.State(ctx), nil
}

// Checkout validates info and starts the simulated order submission.
func (s *Storefront) Checkout(ctx context.Context, sessionID string, info domain.ShippingInfo) (*checkout.Pending, error) {
	if err := validator.Validate(info); err != nil {
		return nil, err
	}

	sess, err := s.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pending, err := s.orchestrator.Checkout(ctx, sess.cart, sess.sink, info)
	if err != nil {
		s.logger.InfoContext(ctx, "checkout refused",
			slog.String("session_id", sessionID),
			slog.String("reason", err.Error()),
		)
		return nil, err
	}
	return pending, nil
}

// Notifications returns and clears the pending notifications of sessionID.
func (s *Storefront) Notifications(ctx context.Context, sessionID string) ([]notify.Notification, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}
	out, err := s.inbox.Drain(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}
	return out, nil
}

// ActiveSessions returns the number of sessions held in memory.
func (s *Storefront) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than the configured timeout and
// returns how many were dropped. Sessions with an order in flight are kept.
// A dropped session is hydrated again from its snapshot on its next request.
func (s *Storefront) Sweep(ctx context.Context) int {
	cutoff := s.now().Add(-s.cfg.IdleTimeout)

	s.mu.Lock()
	var evicted int
	for id, sess := range s.sessions {
		if sess.lastSeen.After(cutoff) || sess.cart.CheckingOut() {
			continue
		}
		delete(s.sessions, id)
		evicted++
	}
	remaining := len(s.sessions)
	s.mu.Unlock()

	activeSessions.Set(float64(remaining))
	if evicted > 0 {
		sessionsEvictedTotal.Add(float64(evicted))
		s.logger.InfoContext(ctx, "evicted idle sessions",
			slog.Int("evicted", evicted),
			slog.Int("remaining", remaining),
		)
	}
	return evicted
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Storefront) RunSweeper(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

func (s *Storefront) session(ctx context.Context, sessionID string) (*session, error) {
	if sessionID == "" {
		return nil, apperrors.InvalidInput("session id is required")
	}

	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if !ok {
		key := s.cfg.SnapshotKey + ":" + sessionID
		sess = &session{
			cart: cart.New(sessionID, key, s.store, s.cartEvents, s.logger),
			sink: s.dispatcher.ForSession(sessionID),
		}
		s.sessions[sessionID] = sess
		activeSessions.Set(float64(len(s.sessions)))
	}
	sess.lastSeen = s.now()
	s.mu.Unlock()

	if !ok {
		sess.cart.Hydrate(ctx)
	}
	return sess, nil
}
