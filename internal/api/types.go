package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// User identifies an account. Password never round-trips through this type;
// it only appears in Credentials and Registration payloads.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// Credentials is the login request payload.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Registration is the account-creation request payload.
type Registration struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResult is the server's response to a successful login.
type LoginResult struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

// Item is a catalog entry. Read-only from this client; Stock is advisory
// display data and availability is validated server-side on every mutation.
type Item struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Price       decimal.Decimal `json:"price"`
	Image       string          `json:"image,omitempty"`
	Category    string          `json:"category,omitempty"`
	Stock       int             `json:"stock"`
}

// CartLine pairs a catalog item with a quantity. Quantity is always >= 1;
// the server drops lines instead of keeping them at zero.
type CartLine struct {
	Item     Item `json:"item"`
	Quantity int  `json:"quantity"`
}

// Total returns price times quantity for the line.
func (l CartLine) Total() decimal.Decimal {
	return l.Item.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart is the server-owned shopping cart. The client only ever holds a
// cached copy of it; see the cart package for the refresh discipline.
type Cart struct {
	ID    string     `json:"id"`
	Items []CartLine `json:"items"`
}

// Quantity returns the sum of line quantities across the cart.
func (c *Cart) Quantity() int {
	total := 0
	for _, l := range c.Items {
		total += l.Quantity
	}
	return total
}

// Subtotal returns the sum of line totals across the cart.
func (c *Cart) Subtotal() decimal.Decimal {
	total := decimal.Zero
	for _, l := range c.Items {
		total = total.Add(l.Total())
	}
	return total
}

// Order statuses as reported by the server. The client observes these but
// never sets them.
const (
	OrderPending   = "pending"
	OrderConfirmed = "confirmed"
	OrderShipped   = "shipped"
	OrderDelivered = "delivered"
	OrderCancelled = "cancelled"
)

// OrderLine snapshots an item's name and price at purchase time, decoupled
// from later catalog edits.
type OrderLine struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Order is a placed order. Immutable from the client's perspective.
type Order struct {
	ID          string          `json:"id"`
	Items       []OrderLine     `json:"items"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      string          `json:"status"`
	CreatedAt   time.Time       `json:"created_at"`
}
