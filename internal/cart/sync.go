// Package cart keeps the client's view of the remote cart coherent. The
// Synchronizer is the single component allowed to mutate cart state, and
// the single place the aggregate item count is computed.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/dshills/shopctl/internal/api"
)

// Service is the slice of the API client the synchronizer drives.
type Service interface {
	GetCart(ctx context.Context) (*api.Cart, error)
	AddToCart(ctx context.Context, itemID string, quantity int) (*api.Cart, error)
	UpdateQuantity(ctx context.Context, itemID string, quantity int) (*api.Cart, error)
	RemoveFromCart(ctx context.Context, itemID string) (*api.Cart, error)
	ClearCart(ctx context.Context) (*api.Cart, error)
}

// Observer is notified with the new snapshot after every successful
// refresh.
type Observer func(Snapshot)

// Snapshot is the cached copy of the server's cart plus the aggregate
// quantity count. Both are always derived from the most recent successful
// fetch; the count is recomputed from the fetched lines rather than
// maintained incrementally, so a mutation from another tab or session can
// never leave a stale number on screen.
type Snapshot struct {
	Cart  api.Cart `json:"cart"`
	Count int      `json:"count"`
}

// Empty reports whether the snapshot holds no lines.
func (s Snapshot) Empty() bool { return len(s.Cart.Items) == 0 }

// Subtotal returns the sum of line totals in the snapshot.
func (s Snapshot) Subtotal() decimal.Decimal { return s.Cart.Subtotal() }

// Synchronizer mediates every cart mutation. Each mutating entry point runs
// through the same mutate-then-refresh helper, so all of them share one
// post-condition: whatever is cached and published was read back from the
// server after the mutation landed.
type Synchronizer struct {
	svc  Service
	logf func(format string, args ...any)

	mu        sync.Mutex
	snapshot  Snapshot
	observers []Observer
}

// New returns a Synchronizer over the given service. logf may be nil.
func New(svc Service, logf func(string, ...any)) *Synchronizer {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Synchronizer{svc: svc, logf: logf}
}

// Subscribe registers an observer for post-refresh notifications.
func (s *Synchronizer) Subscribe(fn Observer) {
	s.mu.Lock()
	s.observers = append(s.observers, fn)
	s.mu.Unlock()
}

// Snapshot returns the current cached view.
func (s *Synchronizer) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot
}

// Count returns the aggregate quantity from the current cached view.
func (s *Synchronizer) Count() int {
	return s.Snapshot().Count
}

// Refresh fetches the cart, replaces the cached copy and notifies
// observers. On failure the previous snapshot is kept untouched — no
// partial overwrite — and the error is both logged and returned.
func (s *Synchronizer) Refresh(ctx context.Context) (Snapshot, error) {
	cart, err := s.svc.GetCart(ctx)
	if err != nil {
		s.logf("cart refresh failed: %s", err)
		return s.Snapshot(), fmt.Errorf("refreshing cart: %w", err)
	}

	snap := Snapshot{Cart: *cart, Count: cart.Quantity()}
	s.mu.Lock()
	s.snapshot = snap
	observers := make([]Observer, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
	return snap, nil
}

// AddItem requests server-side addition of quantity units of an item.
// Quantities below 1 default to 1. Stock and not-found failures are
// returned to the caller for display; there is no automatic retry.
func (s *Synchronizer) AddItem(ctx context.Context, itemID string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.svc.AddToCart(ctx, itemID, quantity)
		return err
	})
}

// UpdateQuantity sets an item's quantity. A requested quantity below 1 is
// rejected before any network call: removal is a distinct operation and a
// zero line would violate the cart model.
func (s *Synchronizer) UpdateQuantity(ctx context.Context, itemID string, quantity int) error {
	if quantity < 1 {
		return nil
	}
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.svc.UpdateQuantity(ctx, itemID, quantity)
		return err
	})
}

// RemoveItem removes an item's line entirely.
func (s *Synchronizer) RemoveItem(ctx context.Context, itemID string) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.svc.RemoveFromCart(ctx, itemID)
		return err
	})
}

// Clear empties the cart server-side.
func (s *Synchronizer) Clear(ctx context.Context) error {
	return s.mutate(ctx, func(ctx context.Context) error {
		_, err := s.svc.ClearCart(ctx)
		return err
	})
}

// mutate runs fn and, on success, re-fetches the cart. The cart returned
// by the mutating call itself is deliberately discarded: only a read issued
// after the mutation is trusted, since the server may have absorbed
// concurrent mutations from other sessions in between.
func (s *Synchronizer) mutate(ctx context.Context, fn func(context.Context) error) error {
	if err := fn(ctx); err != nil {
		return err
	}
	if _, err := s.Refresh(ctx); err != nil {
		return err
	}
	return nil
}
