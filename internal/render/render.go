// Package render formats storefront data for terminal output. The catalog
// and order-history views are pure read-and-render consumers; nothing here
// touches cart state.
package render

import (
	"fmt"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
)

// Renderer formats storefront data into bytes for output.
type Renderer interface {
	Items(items []api.Item) ([]byte, error)
	Item(item *api.Item) ([]byte, error)
	Cart(snap cart.Snapshot) ([]byte, error)
	Orders(orders []api.Order) ([]byte, error)
	Order(order *api.Order) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "text" (default), "json".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "text":
		return &textRenderer{}, nil
	case "json":
		return &jsonRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are text, json", format)
	}
}
