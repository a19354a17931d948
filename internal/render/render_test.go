package render

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
)

func sampleSnapshot() cart.Snapshot {
	return cart.Snapshot{
		Cart: api.Cart{ID: "c1", Items: []api.CartLine{
			{Item: api.Item{ID: "a", Name: "Mug", Price: decimal.NewFromInt(10)}, Quantity: 3},
		}},
		Count: 3,
	}
}

func TestNewRenderer_UnknownFormat(t *testing.T) {
	if _, err := NewRenderer("yaml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestTextCart_TotalsAndCount(t *testing.T) {
	r, err := NewRenderer("text")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out, err := r.Cart(sampleSnapshot())
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	s := string(out)
	if !strings.Contains(s, "30.00") {
		t.Errorf("output missing line total 30.00: %q", s)
	}
	if !strings.Contains(s, "Items: 3") {
		t.Errorf("output missing aggregate count: %q", s)
	}
}

func TestTextCart_Empty(t *testing.T) {
	r, _ := NewRenderer("text")
	out, err := r.Cart(cart.Snapshot{})
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	if !strings.Contains(string(out), "Your cart is empty") {
		t.Errorf("output = %q", out)
	}
}

func TestTextOrders_Table(t *testing.T) {
	r, _ := NewRenderer("text")
	orders := []api.Order{{
		ID:          "ord-1",
		Status:      api.OrderConfirmed,
		TotalAmount: decimal.NewFromFloat(12.34),
		Items:       []api.OrderLine{{Name: "Mug", Price: decimal.NewFromInt(10), Quantity: 1}},
		CreatedAt:   time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}}
	out, err := r.Orders(orders)
	if err != nil {
		t.Fatalf("Orders: %v", err)
	}
	s := string(out)
	for _, want := range []string{"ord-1", "confirmed", "12.34", "2026-09-01"} {
		if !strings.Contains(s, want) {
			t.Errorf("output missing %q: %q", want, s)
		}
	}
}

func TestJSONCart_RoundTrip(t *testing.T) {
	r, err := NewRenderer("json")
	if err != nil {
		t.Fatalf("NewRenderer: %v", err)
	}
	out, err := r.Cart(sampleSnapshot())
	if err != nil {
		t.Fatalf("Cart: %v", err)
	}
	var decoded cart.Snapshot
	if err := json.Unmarshal(out, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Count != 3 || len(decoded.Cart.Items) != 1 {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestTextItems_EmptyCatalog(t *testing.T) {
	r, _ := NewRenderer("text")
	out, err := r.Items(nil)
	if err != nil {
		t.Fatalf("Items: %v", err)
	}
	if !strings.Contains(string(out), "No items") {
		t.Errorf("output = %q", out)
	}
}
