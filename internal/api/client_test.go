package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// newTestClient starts an httptest server with the given handler and
// returns a Client pointed at it.
func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 0)
}

func writeJSON(t *testing.T, w http.ResponseWriter, status int, body any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		t.Errorf("encoding response: %v", err)
	}
}

func TestClient_BearerTokenAttached(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, Cart{ID: "c1"})
	})
	c.SetToken("tok-123")

	if _, err := c.GetCart(context.Background()); err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok-123")
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		writeJSON(t, w, http.StatusOK, []Item{})
	})

	if _, err := c.ListItems(context.Background()); err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want empty", gotAuth)
	}
}

func TestClient_UnauthorizedFiresHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "token expired"})
	})
	c.SetToken("stale")

	fired := 0
	c.OnUnauthorized(func() { fired++ })

	_, err := c.GetCart(context.Background())
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if fired != 1 {
		t.Errorf("unauthorized hook fired %d times, want 1", fired)
	}
}

func TestClient_UnauthorizedWithoutTokenDoesNotFireHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusUnauthorized, map[string]string{"error": "invalid username or password"})
	})

	fired := 0
	c.OnUnauthorized(func() { fired++ })

	_, err := c.Login(context.Background(), Credentials{Username: "u", Password: "bad"})
	if !IsKind(err, KindAuth) {
		t.Fatalf("expected auth error, got %v", err)
	}
	if fired != 0 {
		t.Errorf("unauthorized hook fired %d times on a login failure, want 0", fired)
	}
}

func TestClient_AlreadyLoggedInDistinctFromBadCredentials(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusConflict, map[string]string{
			"error": "You cannot login on another device",
			"code":  CodeAlreadyLoggedIn,
		})
	})

	_, err := c.Login(context.Background(), Credentials{Username: "u", Password: "p"})
	if !IsAlreadyActive(err) {
		t.Fatalf("expected already-active error, got %v", err)
	}
	if !IsKind(err, KindAuth) {
		t.Errorf("already-active error should classify as auth, got %v", err)
	}
}

func TestClient_OutOfStockSurfacedVerbatim(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, http.StatusBadRequest, map[string]string{
			"error": "Only 2 left in stock",
			"code":  CodeOutOfStock,
		})
	})
	c.SetToken("tok")

	_, err := c.AddToCart(context.Background(), "item-1", 5)
	if !IsKind(err, KindStock) {
		t.Fatalf("expected stock error, got %v", err)
	}
	var ae *Error
	if !asAPIError(err, &ae) || ae.Message != "Only 2 left in stock" {
		t.Errorf("server message not preserved verbatim: %v", err)
	}
}

func TestClient_AddToCartBody(t *testing.T) {
	var got addRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/carts/add" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decoding body: %v", err)
		}
		writeJSON(t, w, http.StatusOK, Cart{})
	})
	c.SetToken("tok")

	if _, err := c.AddToCart(context.Background(), "item-9", 3); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if got.ItemID != "item-9" || got.Quantity != 3 {
		t.Errorf("body = %+v, want itemId=item-9 quantity=3", got)
	}
}

func TestClient_UpdateQuantityPathAndBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/carts/update/item-9" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var q quantityRequest
		if err := json.NewDecoder(r.Body).Decode(&q); err != nil || q.Quantity != 4 {
			t.Errorf("body quantity = %d (err %v), want 4", q.Quantity, err)
		}
		writeJSON(t, w, http.StatusOK, Cart{})
	})
	c.SetToken("tok")

	if _, err := c.UpdateQuantity(context.Background(), "item-9", 4); err != nil {
		t.Fatalf("UpdateQuantity: %v", err)
	}
}

func TestClient_CreateOrderCarriesIdempotencyKey(t *testing.T) {
	var gotKey string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		writeJSON(t, w, http.StatusCreated, Order{ID: "ord-1", Status: OrderPending})
	})
	c.SetToken("tok")

	order, err := c.CreateOrder(context.Background(), "key-abc")
	if err != nil {
		t.Fatalf("CreateOrder: %v", err)
	}
	if gotKey != "key-abc" {
		t.Errorf("Idempotency-Key = %q, want key-abc", gotKey)
	}
	if order.ID != "ord-1" {
		t.Errorf("order ID = %q, want ord-1", order.ID)
	}
}

func TestClient_DecimalPriceDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"i1","name":"Mug","price":10.5,"stock":3}]`)) //nolint:errcheck
	})
	c.SetToken("tok")

	items, err := c.ListItems(context.Background())
	if err != nil {
		t.Fatalf("ListItems: %v", err)
	}
	if len(items) != 1 || items[0].Price.StringFixed(2) != "10.50" {
		t.Errorf("items = %+v, want one item priced 10.50", items)
	}
}

func TestClient_NetworkErrorKind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // dead endpoint
	c := New(srv.URL, 0)

	_, err := c.GetCart(context.Background())
	if !IsKind(err, KindNetwork) {
		t.Errorf("expected network error, got %v", err)
	}
}

func TestClient_NonJSONErrorBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded")) //nolint:errcheck
	})
	c.SetToken("tok")

	_, err := c.GetCart(context.Background())
	var ae *Error
	if !asAPIError(err, &ae) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if ae.Status != http.StatusBadGateway || ae.Kind != KindUnknown {
		t.Errorf("got %+v, want status 502 kind unknown", ae)
	}
}
