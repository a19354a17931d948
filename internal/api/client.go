package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// DefaultTimeout bounds every request. There is no cancellation of an
// in-flight mutation; a hung request is expected to fail within this window
// and surface as a KindTimeout error.
const DefaultTimeout = 15 * time.Second

// Client talks to the storefront API. All authenticated calls carry the
// bearer token set via SetToken. The zero value is not usable; use New.
type Client struct {
	baseURL string
	http    *http.Client

	mu             sync.Mutex
	token          string
	onUnauthorized func()
}

// New returns a Client for the API rooted at baseURL. A non-positive
// timeout falls back to DefaultTimeout.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// SetToken installs the bearer token for subsequent requests. An empty
// string clears it.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token returns the currently installed bearer token.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token
}

// OnUnauthorized registers fn to run whenever a token-bearing request is
// refused with 401. The session manager hooks this to force a logout from
// anywhere in the app; the refused call still returns its auth error.
func (c *Client) OnUnauthorized(fn func()) {
	c.mu.Lock()
	c.onUnauthorized = fn
	c.mu.Unlock()
}

// errorBody mirrors the server's failure payload.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// do issues a JSON request and decodes the response into out when out is
// non-nil. Non-2xx responses come back as *Error with the server's message
// verbatim; transport failures map to KindNetwork or KindTimeout.
func (c *Client) do(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("creating HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	c.mu.Lock()
	token := c.token
	unauthorized := c.onUnauthorized
	c.mu.Unlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		kind := KindNetwork
		var ne net.Error
		if errors.As(err, &ne) && ne.Timeout() {
			kind = KindTimeout
		}
		return &Error{Kind: kind, Message: err.Error()}
	}
	defer resp.Body.Close()

	const maxBodyBytes = 1 << 20
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &Error{Kind: KindNetwork, Message: fmt.Sprintf("reading response: %s", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb) // non-JSON bodies fall through to the HTTP-status message
		msg := eb.Error
		if msg == "" {
			msg = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
		}
		// Only a token-bearing request can signal a stale session; a failed
		// login is an ordinary error.
		if resp.StatusCode == http.StatusUnauthorized && token != "" && unauthorized != nil {
			unauthorized()
		}
		return &Error{
			Kind:    classify(resp.StatusCode, eb.Code),
			Code:    eb.Code,
			Message: msg,
			Status:  resp.StatusCode,
		}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parsing response JSON (HTTP %d, body: %s): %w", resp.StatusCode, truncate(string(data), 200), err)
	}
	return nil
}

// Register creates an account. It does not authenticate; callers log in
// separately afterwards.
func (c *Client) Register(ctx context.Context, reg Registration) error {
	return c.do(ctx, http.MethodPost, "/users/register", nil, reg, nil)
}

// Login exchanges credentials for a token and user identity.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	var res LoginResult
	if err := c.do(ctx, http.MethodPost, "/users/login", nil, creds, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Logout invalidates the server-side session for the current token.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/users/logout", nil, nil, nil)
}

// Profile fetches the authenticated user's identity.
func (c *Client) Profile(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListItems fetches the catalog.
func (c *Client) ListItems(ctx context.Context) ([]Item, error) {
	var items []Item
	if err := c.do(ctx, http.MethodGet, "/items", nil, nil, &items); err != nil {
		return nil, err
	}
	return items, nil
}

// GetItem fetches a single catalog entry.
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	var item Item
	if err := c.do(ctx, http.MethodGet, "/items/"+url.PathEscape(id), nil, nil, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// GetCart fetches the current cart.
func (c *Client) GetCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodGet, "/carts", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// addRequest is the add-to-cart request payload.
type addRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// quantityRequest is the update-quantity request payload.
type quantityRequest struct {
	Quantity int `json:"quantity"`
}

// AddToCart adds quantity units of an item and returns the updated cart.
func (c *Client) AddToCart(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodPost, "/carts/add", nil, addRequest{ItemID: itemID, Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// UpdateQuantity sets the quantity of an existing cart line and returns the
// updated cart.
func (c *Client) UpdateQuantity(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodPut, "/carts/update/"+url.PathEscape(itemID), nil, quantityRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// RemoveFromCart removes an item's line entirely and returns the updated
// cart.
func (c *Client) RemoveFromCart(ctx context.Context, itemID string) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodDelete, "/carts/remove/"+url.PathEscape(itemID), nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// ClearCart empties the cart and returns it.
func (c *Client) ClearCart(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := c.do(ctx, http.MethodDelete, "/carts/clear", nil, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

// CreateOrder converts the server's current cart into an order. The server
// decides the order contents from its own cart at the moment of the call;
// no local snapshot is sent. The idempotency key guards against a duplicate
// submit creating two orders.
func (c *Client) CreateOrder(ctx context.Context, idempotencyKey string) (*Order, error) {
	header := http.Header{}
	if idempotencyKey != "" {
		header.Set("Idempotency-Key", idempotencyKey)
	}
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", header, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrders fetches the user's order history.
func (c *Client) ListOrders(ctx context.Context) ([]Order, error) {
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders", nil, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

// GetOrder fetches a single order.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// truncate limits a string to maxLen runes, appending "..." if truncated.
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}
