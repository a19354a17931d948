// Package checkout converts a non-empty cart into an order against the
// remote API, sequencing the calls and propagating the cart-to-order state
// transition to dependent views.
package checkout

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
)

// State of the orchestrator. Completed and Failed are reported through the
// Checkout return values; the orchestrator itself always settles back to
// Idle so the next attempt can start.
type State string

const (
	StateIdle       State = "idle"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

// ErrInProgress is returned when checkout is requested while a previous
// attempt is still in flight. The duplicate request is dropped, never
// queued, so a double click cannot create two orders.
var ErrInProgress = errors.New("checkout already in progress")

// OrderService places orders. Implemented by *api.Client.
type OrderService interface {
	CreateOrder(ctx context.Context, idempotencyKey string) (*api.Order, error)
}

// CartView is the synchronizer surface the orchestrator needs: the cached
// cart for the empty-cart guard, and a re-fetch once the server has (or has
// not) consumed it.
type CartView interface {
	Snapshot() cart.Snapshot
	Refresh(ctx context.Context) (cart.Snapshot, error)
}

// Result reports a successful checkout.
type Result struct {
	Order *api.Order
	// OrderID is empty when the server's response carried no identifier;
	// confirmations then omit it rather than guessing.
	OrderID string
}

// Orchestrator drives a single checkout attempt at a time.
type Orchestrator struct {
	orders OrderService
	cart   CartView
	logf   func(format string, args ...any)

	// OnCompleted, when set, runs after a successful checkout once the cart
	// has been re-fetched. Views use it to switch to order history.
	OnCompleted func(*api.Order)

	newKey func() string

	mu    sync.Mutex
	state State
}

// New returns an Orchestrator over the given services. logf may be nil.
func New(orders OrderService, cartView CartView, logf func(string, ...any)) *Orchestrator {
	if logf == nil {
		logf = func(string, ...any) {}
	}
	return &Orchestrator{
		orders: orders,
		cart:   cartView,
		logf:   logf,
		newKey: uuid.NewString,
		state:  StateIdle,
	}
}

// State returns the current state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
}

// Checkout converts the server's current cart into an order.
//
// An empty cached cart fails fast with an empty-cart error and no network
// call. While an attempt is in flight, further calls return ErrInProgress.
// The server decides the order contents from its own authoritative cart at
// the moment of the call; the local snapshot is used only for the guard, so
// a last-second server-side change is reflected rather than overwritten.
//
// On success the cart is re-fetched — the server already emptied it, so the
// refresh confirms the empty state instead of issuing a redundant clear.
// On failure the cart is likewise re-fetched, never assumed unchanged, and
// the server's error is returned verbatim with the state back at Idle.
func (o *Orchestrator) Checkout(ctx context.Context) (*Result, error) {
	o.mu.Lock()
	if o.state != StateIdle {
		o.mu.Unlock()
		return nil, ErrInProgress
	}
	o.state = StateValidating
	o.mu.Unlock()

	if o.cart.Snapshot().Empty() {
		o.setState(StateIdle)
		return nil, &api.Error{Kind: api.KindEmptyCart, Message: "cart is empty"}
	}

	o.setState(StateSubmitting)
	order, err := o.orders.CreateOrder(ctx, o.newKey())
	if err != nil {
		o.setState(StateFailed)
		if _, rerr := o.cart.Refresh(ctx); rerr != nil {
			o.logf("cart refresh after failed checkout: %s", rerr)
		}
		o.setState(StateIdle)
		return nil, err
	}

	o.setState(StateCompleted)
	if _, rerr := o.cart.Refresh(ctx); rerr != nil {
		o.logf("cart refresh after checkout: %s", rerr)
	}
	if o.OnCompleted != nil {
		o.OnCompleted(order)
	}
	o.setState(StateIdle)

	res := &Result{Order: order}
	if order != nil {
		res.OrderID = order.ID
	}
	return res, nil
}
