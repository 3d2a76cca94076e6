package cart

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidQuantity is returned when an add carries a quantity below one.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrOutOfStock is returned when the captured ceiling leaves no room at all.
	ErrOutOfStock = errors.New("product is out of stock")
	// ErrItemNotFound is returned when updating a line that is not in the cart.
	ErrItemNotFound = errors.New("cart item not found")
)

// Item is one cart line. Lines are keyed by (ProductID, Size, Color).
type Item struct {
	ProductID    int64           `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	Color        string          `json:"color,omitempty"`
	Size         string          `json:"size,omitempty"`
	Quantity     int             `json:"quantity"`
	StockCeiling *int            `json:"stock,omitempty"`
}

// Subtotal is price x quantity for the line.
func (i Item) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

func (i Item) matches(productID int64, size, color string) bool {
	return i.ProductID == productID && i.Size == size && i.Color == color
}

// AddResult reports the line after a mutation and whether the stock ceiling
// clamped the requested quantity.
type AddResult struct {
	Item         Item `json:"item"`
	StockLimited bool `json:"stockLimited"`
}

// Cart is a shopper's collection of lines. The zero value is an empty cart.
type Cart struct {
	Items []Item `json:"items"`
}

// AddItem merges the item into an existing line with the same key or appends
// it. The resulting quantity never exceeds the item's stock ceiling when one
// is supplied.
func (c *Cart) AddItem(item Item) (AddResult, error) {
	if item.Quantity < 1 {
		return AddResult{}, ErrInvalidQuantity
	}
	item.Size = strings.TrimSpace(item.Size)
	item.Color = strings.TrimSpace(item.Color)
	if item.StockCeiling != nil && *item.StockCeiling <= 0 {
		return AddResult{}, ErrOutOfStock
	}

	for i := range c.Items {
		existing := &c.Items[i]
		if !existing.matches(item.ProductID, item.Size, item.Color) {
			continue
		}
		if item.StockCeiling != nil {
			existing.StockCeiling = copyInt(item.StockCeiling)
		}
		existing.Name = item.Name
		existing.Price = item.Price
		quantity, limited := clamp(existing.Quantity+item.Quantity, existing.StockCeiling)
		existing.Quantity = quantity
		return AddResult{Item: *existing, StockLimited: limited}, nil
	}

	item.StockCeiling = copyInt(item.StockCeiling)
	quantity, limited := clamp(item.Quantity, item.StockCeiling)
	item.Quantity = quantity
	c.Items = append(c.Items, item)
	return AddResult{Item: item, StockLimited: limited}, nil
}

// RemoveItem deletes the matching line. Missing lines are ignored.
func (c *Cart) RemoveItem(productID int64, size, color string) {
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)
	kept := c.Items[:0]
	for _, item := range c.Items {
		if !item.matches(productID, size, color) {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// UpdateQuantity sets the quantity of a line. A quantity of zero or less
// removes the line.
func (c *Cart) UpdateQuantity(productID int64, size, color string, quantity int) (AddResult, error) {
	size, color = strings.TrimSpace(size), strings.TrimSpace(color)
	if quantity <= 0 {
		c.RemoveItem(productID, size, color)
		return AddResult{}, nil
	}
	for i := range c.Items {
		existing := &c.Items[i]
		if !existing.matches(productID, size, color) {
			continue
		}
		clamped, limited := clamp(quantity, existing.StockCeiling)
		existing.Quantity = clamped
		return AddResult{Item: *existing, StockLimited: limited}, nil
	}
	return AddResult{}, ErrItemNotFound
}

// PriceChange reports a line whose catalog price moved after it was added.
type PriceChange struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	OldPrice  decimal.Decimal `json:"oldPrice"`
	NewPrice  decimal.Decimal `json:"newPrice"`
}

// Reprice brings every line of productID in line with the catalog: name,
// price and stock ceiling. Quantities are clamped to the new ceiling and lines
// left with nothing in stock are dropped. It returns the price change, if any,
// and whether any quantity shrank.
func (c *Cart) Reprice(productID int64, name string, price decimal.Decimal, stock int) (*PriceChange, bool) {
	var change *PriceChange
	limited := false
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
			continue
		}
		if change == nil && !item.Price.Equal(price) {
			change = &PriceChange{ProductID: productID, Name: name, OldPrice: item.Price, NewPrice: price}
		}
		item.Name = name
		item.Price = price
		item.StockCeiling = copyInt(&stock)
		quantity, clamped := clamp(item.Quantity, item.StockCeiling)
		limited = limited || clamped
		if quantity <= 0 {
			continue
		}
		item.Quantity = quantity
		kept = append(kept, item)
	}
	c.Items = kept
	return change, limited
}

// RemoveProduct drops every variant of productID.
func (c *Cart) RemoveProduct(productID int64) {
	kept := c.Items[:0]
	for _, item := range c.Items {
		if item.ProductID != productID {
			kept = append(kept, item)
		}
	}
	c.Items = kept
}

// ProductIDs lists the distinct products in the cart in line order.
func (c *Cart) ProductIDs() []int64 {
	ids := make([]int64, 0, len(c.Items))
	seen := make(map[int64]struct{}, len(c.Items))
	for _, item := range c.Items {
		if _, ok := seen[item.ProductID]; ok {
			continue
		}
		seen[item.ProductID] = struct{}{}
		ids = append(ids, item.ProductID)
	}
	return ids
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = nil
}

// Total is the sum of every line subtotal.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// ItemCount is the sum of quantities.
func (c *Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}

func clamp(quantity int, ceiling *int) (int, bool) {
	if ceiling != nil && quantity > *ceiling {
		return *ceiling, true
	}
	return quantity, false
}

func copyInt(v *int) *int {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
