package render

import (
	"bytes"
	"fmt"
	"text/tabwriter"

	"github.com/dshills/shopctl/internal/api"
	"github.com/dshills/shopctl/internal/cart"
)

type textRenderer struct{}

func (r *textRenderer) Items(items []api.Item) ([]byte, error) {
	if len(items) == 0 {
		return []byte("No items in the catalog.\n"), nil
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tSTOCK\tCATEGORY")
	for _, it := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n", it.ID, it.Name, it.Price.StringFixed(2), it.Stock, it.Category)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("rendering items: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *textRenderer) Item(item *api.Item) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%s (%s)\n", item.Name, item.ID)
	if item.Description != "" {
		fmt.Fprintln(&buf, item.Description)
	}
	fmt.Fprintf(&buf, "Price: %s\n", item.Price.StringFixed(2))
	fmt.Fprintf(&buf, "Stock: %d\n", item.Stock)
	if item.Category != "" {
		fmt.Fprintf(&buf, "Category: %s\n", item.Category)
	}
	return buf.Bytes(), nil
}

func (r *textRenderer) Cart(snap cart.Snapshot) ([]byte, error) {
	if snap.Empty() {
		return []byte("Your cart is empty.\n"), nil
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tQTY\tTOTAL")
	for _, l := range snap.Cart.Items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			l.Item.ID, l.Item.Name, l.Item.Price.StringFixed(2), l.Quantity, l.Total().StringFixed(2))
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("rendering cart: %w", err)
	}
	fmt.Fprintf(&buf, "\nItems: %d  Subtotal: %s\n", snap.Count, snap.Subtotal().StringFixed(2))
	return buf.Bytes(), nil
}

func (r *textRenderer) Orders(orders []api.Order) ([]byte, error) {
	if len(orders) == 0 {
		return []byte("No orders yet.\n"), nil
	}
	var buf bytes.Buffer
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tTOTAL\tLINES\tCREATED")
	for _, o := range orders {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			o.ID, o.Status, o.TotalAmount.StringFixed(2), len(o.Items), o.CreatedAt.Format("2006-01-02 15:04"))
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("rendering orders: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *textRenderer) Order(order *api.Order) ([]byte, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Order %s — %s — placed %s\n\n", order.ID, order.Status, order.CreatedAt.Format("2006-01-02 15:04"))
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPRICE\tQTY")
	for _, l := range order.Items {
		fmt.Fprintf(w, "%s\t%s\t%d\n", l.Name, l.Price.StringFixed(2), l.Quantity)
	}
	if err := w.Flush(); err != nil {
		return nil, fmt.Errorf("rendering order: %w", err)
	}
	fmt.Fprintf(&buf, "\nTotal: %s\n", order.TotalAmount.StringFixed(2))
	return buf.Bytes(), nil
}
