package render

import (
	"encoding/json"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
)

type jsonRenderer struct{}

func (r *jsonRenderer) Items(items []api.Item) ([]byte, error) {
	return json.MarshalIndent(items, "", "  ")
}

func (r *jsonRenderer) Item(item *api.Item) ([]byte, error) {
	return json.MarshalIndent(item, "", "  ")
}

func (r *jsonRenderer) Cart(snap cart.Snapshot) ([]byte, error) {
	return json.MarshalIndent(snap, "", "  ")
}

func (r *jsonRenderer) Orders(orders []api.Order) ([]byte, error) {
	return json.MarshalIndent(orders, "", "  ")
}

func (r *jsonRenderer) Order(order *api.Order) ([]byte, error) {
	return json.MarshalIndent(order, "", "  ")
}
