// Package tui is the interactive storefront view: catalog browsing, cart
// editing, checkout and order history in one bubbletea program. It never
// mutates cart state itself; every mutation goes through the synchronizer,
// and the badge in the header only ever shows the synchronizer's published
// count.
package tui

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
	"github.com/dshills/shopctl/internal/checkout"
)

type screen int

const (
	screenShop screen = iota
	screenCart
	screenOrders
)

// Catalog lists items. Implemented by *api.Client.
type Catalog interface {
	ListItems(ctx context.Context) ([]api.Item, error)
}

// OrderHistory lists past orders. Implemented by *api.Client.
type OrderHistory interface {
	ListOrders(ctx context.Context) ([]api.Order, error)
}

// Model is the TUI state. One remote operation is in flight at a time; the
// busy flag disables the controls that started it, so a held-down key can't
// race requests against each other.
type Model struct {
	user    api.User
	syncer  *cart.Synchronizer
	orch    *checkout.Orchestrator
	catalog Catalog
	history OrderHistory

	screen screen
	items  []api.Item
	orders []api.Order
	snap   cart.Snapshot
	cursor int
	busy   bool
	status string

	// LoggedOut is set when an auth failure ends the session; the caller
	// checks it after the program exits and returns to the login prompt.
	LoggedOut bool
}

// New returns a Model for the given authenticated user.
func New(user api.User, syncer *cart.Synchronizer, orch *checkout.Orchestrator, catalog Catalog, history OrderHistory) Model {
	return Model{
		user:    user,
		syncer:  syncer,
		orch:    orch,
		catalog: catalog,
		history: history,
		status:  "Loading...",
	}
}

type itemsMsg struct {
	items []api.Item
	err   error
}

type cartMsg struct {
	snap cart.Snapshot
	err  error
}

type ordersMsg struct {
	orders []api.Order
	err    error
}

type checkoutMsg struct {
	res *checkout.Result
	err error
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadItemsCmd(), m.refreshCartCmd())
}

func (m Model) loadItemsCmd() tea.Cmd {
	return func() tea.Msg {
		items, err := m.catalog.ListItems(context.Background())
		return itemsMsg{items: items, err: err}
	}
}

func (m Model) refreshCartCmd() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.syncer.Refresh(context.Background())
		return cartMsg{snap: snap, err: err}
	}
}

func (m Model) addToCartCmd(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.syncer.AddItem(context.Background(), itemID, 1); err != nil {
			return cartMsg{snap: m.syncer.Snapshot(), err: err}
		}
		return cartMsg{snap: m.syncer.Snapshot()}
	}
}

func (m Model) updateQuantityCmd(itemID string, quantity int) tea.Cmd {
	return func() tea.Msg {
		if err := m.syncer.UpdateQuantity(context.Background(), itemID, quantity); err != nil {
			return cartMsg{snap: m.syncer.Snapshot(), err: err}
		}
		return cartMsg{snap: m.syncer.Snapshot()}
	}
}

func (m Model) removeItemCmd(itemID string) tea.Cmd {
	return func() tea.Msg {
		if err := m.syncer.RemoveItem(context.Background(), itemID); err != nil {
			return cartMsg{snap: m.syncer.Snapshot(), err: err}
		}
		return cartMsg{snap: m.syncer.Snapshot()}
	}
}

func (m Model) loadOrdersCmd() tea.Cmd {
	return func() tea.Msg {
		orders, err := m.history.ListOrders(context.Background())
		return ordersMsg{orders: orders, err: err}
	}
}

func (m Model) checkoutCmd() tea.Cmd {
	return func() tea.Msg {
		res, err := m.orch.Checkout(context.Background())
		return checkoutMsg{res: res, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case itemsMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.items = msg.items
		m.clampCursor()
		m.status = "Ready"
		return m, nil

	case cartMsg:
		m.busy = false
		m.snap = msg.snap
		m.clampCursor()
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.status = fmt.Sprintf("Cart: %d item(s)", m.snap.Count)
		return m, nil

	case ordersMsg:
		m.busy = false
		if msg.err != nil {
			return m.fail(msg.err)
		}
		m.orders = msg.orders
		m.status = "Ready"
		return m, nil

	case checkoutMsg:
		m.busy = false
		m.snap = m.syncer.Snapshot()
		if msg.err != nil {
			return m.fail(msg.err)
		}
		if msg.res.OrderID != "" {
			m.status = fmt.Sprintf("Order placed successfully! Order ID: %s", msg.res.OrderID)
		} else {
			m.status = "Order placed successfully!"
		}
		// Checkout done: move to order history, like the web client does.
		m.screen = screenOrders
		m.cursor = 0
		m.busy = true
		return m, m.loadOrdersCmd()
	}
	return m, nil
}

// fail routes an operation error: auth failures end the session and quit,
// everything else is shown in the status line and the view stays alive.
func (m Model) fail(err error) (tea.Model, tea.Cmd) {
	if api.IsKind(err, api.KindAuth) {
		m.LoggedOut = true
		m.status = "Session expired. Please log in again."
		return m, tea.Quit
	}
	m.status = fmt.Sprintf("Error: %s", err)
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < m.listLen()-1 {
			m.cursor++
		}
		return m, nil

	case "s":
		m.screen = screenShop
		m.cursor = 0
		return m, nil

	case "c":
		m.screen = screenCart
		m.cursor = 0
		m.busy = true
		m.status = "Refreshing cart..."
		return m, m.refreshCartCmd()

	case "o":
		m.screen = screenOrders
		m.cursor = 0
		m.busy = true
		m.status = "Loading orders..."
		return m, m.loadOrdersCmd()

	case "r":
		m.busy = true
		m.status = "Refreshing..."
		switch m.screen {
		case screenShop:
			return m, tea.Batch(m.loadItemsCmd(), m.refreshCartCmd())
		case screenCart:
			return m, m.refreshCartCmd()
		default:
			return m, m.loadOrdersCmd()
		}

	case "enter":
		if m.screen != screenShop || m.busy || m.cursor >= len(m.items) {
			return m, nil
		}
		m.busy = true
		m.status = "Adding to cart..."
		return m, m.addToCartCmd(m.items[m.cursor].ID)

	case "+":
		line, ok := m.selectedLine()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Updating quantity..."
		return m, m.updateQuantityCmd(line.Item.ID, line.Quantity+1)

	case "-":
		line, ok := m.selectedLine()
		if !ok || m.busy || line.Quantity <= 1 {
			// Going below 1 is not a quantity edit; use delete instead.
			return m, nil
		}
		m.busy = true
		m.status = "Updating quantity..."
		return m, m.updateQuantityCmd(line.Item.ID, line.Quantity-1)

	case "d":
		line, ok := m.selectedLine()
		if !ok || m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Removing item..."
		return m, m.removeItemCmd(line.Item.ID)

	case "x":
		if m.busy {
			return m, nil
		}
		m.busy = true
		m.status = "Placing order..."
		return m, m.checkoutCmd()
	}
	return m, nil
}

// selectedLine returns the cart line under the cursor on the cart screen.
func (m Model) selectedLine() (api.CartLine, bool) {
	if m.screen != screenCart || m.cursor >= len(m.snap.Cart.Items) {
		return api.CartLine{}, false
	}
	return m.snap.Cart.Items[m.cursor], true
}

func (m Model) listLen() int {
	switch m.screen {
	case screenShop:
		return len(m.items)
	case screenCart:
		return len(m.snap.Cart.Items)
	default:
		return len(m.orders)
	}
}

func (m *Model) clampCursor() {
	if n := m.listLen(); m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) View() string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "ShopHub — %s  [cart: %d]\n\n", m.user.Username, m.snap.Count)

	switch m.screen {
	case screenShop:
		fmt.Fprintln(b, "Catalog:")
		if len(m.items) == 0 {
			fmt.Fprintln(b, "  (no items)")
		}
		for i, it := range m.items {
			marker := " "
			if i == m.cursor {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %s  %s  (stock %d)\n", marker, it.Name, it.Price.StringFixed(2), it.Stock)
		}

	case screenCart:
		fmt.Fprintln(b, "Cart:")
		if m.snap.Empty() {
			fmt.Fprintln(b, "  (empty)")
		}
		for i, l := range m.snap.Cart.Items {
			marker := " "
			if i == m.cursor {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %s  %s x%d = %s\n", marker, l.Item.Name, l.Item.Price.StringFixed(2), l.Quantity, l.Total().StringFixed(2))
		}
		if !m.snap.Empty() {
			fmt.Fprintf(b, "\n Subtotal: %s\n", m.snap.Subtotal().StringFixed(2))
		}

	case screenOrders:
		fmt.Fprintln(b, "Orders:")
		if len(m.orders) == 0 {
			fmt.Fprintln(b, "  (no orders yet)")
		}
		for i, o := range m.orders {
			marker := " "
			if i == m.cursor {
				marker = ">"
			}
			fmt.Fprintf(b, " %s %s  %s  %s\n", marker, o.ID, o.Status, o.TotalAmount.StringFixed(2))
		}
	}

	fmt.Fprintf(b, "\nStatus: %s\n", m.status)
	fmt.Fprintln(b, "\nControls: s shop, c cart, o orders | enter add, +/- qty, d remove, x checkout | r refresh, q quit")
	return b.String()
}
