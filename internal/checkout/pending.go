package checkout

import (
	"context"
	"sync"

	"github.com/crispydelights/storefront/internal/domain"
)

// Pending is the eventual outcome of a submitted order.
type Pending struct {
	done     chan struct{}
	cancel   chan struct{}
	once     sync.Once
	cancelMu sync.Once

	conf domain.Confirmation
	err  error
}

func newPending() *Pending {
	return &Pending{
		done:   make(chan struct{}),
		cancel: make(chan struct{}),
	}
}

// Done is closed once the order is confirmed or cancelled.
func (p *Pending) Done() <-chan struct{} { return p.done }

// Wait blocks until the outcome is known or ctx ends. Giving up on the wait
// does not cancel the submission.
func (p *Pending) Wait(ctx context.Context) (domain.Confirmation, error) {
	select {
	case <-p.done:
		return p.conf, p.err
	case <-ctx.Done():
		return domain.Confirmation{}, ctx.Err()
	}
}

// Cancel abandons the submission if the simulated delay has not yet
// elapsed. The cart keeps its items and the outcome is context.Canceled.
// Cancel after the delay has elapsed has no effect.
func (p *Pending) Cancel() {
	p.cancelMu.Do(func() { close(p.cancel) })
}

func (p *Pending) resolve(conf domain.Confirmation, err error) {
	p.once.Do(func() {
		p.conf = conf
		p.err = err
		close(p.done)
	})
}
