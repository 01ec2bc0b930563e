package domain

import "fmt"

// ============================================================
// Cart
// ============================================================

// LineKey identifies a cart line. A user's cart holds at most one line per key.
type LineKey struct {
	ProductID int    `json:"product_id"`
	Size      string `json:"size"`
}

func (k LineKey) String() string {
	return fmt.Sprintf("%d/%s", k.ProductID, k.Size)
}

// CartLine is one purchasable configuration in a cart.
type CartLine struct {
	ProductID    int     `json:"product_id"`
	Name         string  `json:"name"`
	DisplayPrice string  `json:"price"`
	UnitPrice    float64 `json:"price_number"`
	ImageRef     string  `json:"image"`
	ColorLabel   string  `json:"color"`
	Size         string  `json:"size"`
	Quantity     int     `json:"quantity"`
}

// Key returns the identity key of the line.
func (l CartLine) Key() LineKey {
	return LineKey{ProductID: l.ProductID, Size: l.Size}
}

// CartSnapshot is the read model handed to the UI.
type CartSnapshot struct {
	Items      []CartLine `json:"items"`
	IsOpen     bool       `json:"is_open"`
	ItemCount  int        `json:"item_count"`
	TotalPrice float64    `json:"total_price"`
}

// Cart is the in-memory cart state. It is not safe for concurrent use;
// callers serialize access.
type Cart struct {
	lines  []CartLine
	isOpen bool
}

// Add inserts the line with quantity 1, or increments the quantity of the
// line already holding the same key. It returns the resulting line.
func (c *Cart) Add(line CartLine) CartLine {
	if i := c.index(line.Key()); i >= 0 {
		c.lines[i].Quantity++
		return c.lines[i]
	}
	line.Quantity = 1
	c.lines = append(c.lines, line)
	return line
}

// Remove deletes the line for key. The removed line is returned when present.
func (c *Cart) Remove(key LineKey) (CartLine, bool) {
	i := c.index(key)
	if i < 0 {
		return CartLine{}, false
	}
	removed := c.lines[i]
	c.lines = append(c.lines[:i], c.lines[i+1:]...)
	return removed, true
}

// SetQuantity sets the quantity of the line for key. A quantity of zero or
// less removes the line. found reports whether a line held the key.
func (c *Cart) SetQuantity(key LineKey, quantity int) (line CartLine, removed, found bool) {
	if quantity <= 0 {
		line, found = c.Remove(key)
		return line, found, found
	}
	i := c.index(key)
	if i < 0 {
		return CartLine{}, false, false
	}
	c.lines[i].Quantity = quantity
	return c.lines[i], false, true
}

// Replace swaps the cart content wholesale. Lines sharing a key are merged
// by summing quantities and lines with a non-positive quantity are dropped.
func (c *Cart) Replace(lines []CartLine) {
	c.lines = c.lines[:0]
	for _, l := range lines {
		if l.Quantity <= 0 {
			continue
		}
		if i := c.index(l.Key()); i >= 0 {
			c.lines[i].Quantity += l.Quantity
			continue
		}
		c.lines = append(c.lines, l)
	}
}

// Clear empties the cart. Visibility is left untouched.
func (c *Cart) Clear() {
	c.lines = nil
}

// SetOpen sets the visibility flag.
func (c *Cart) SetOpen(open bool) {
	c.isOpen = open
}

// IsOpen reports the visibility flag.
func (c *Cart) IsOpen() bool {
	return c.isOpen
}

// Lines returns a copy of the cart lines.
func (c *Cart) Lines() []CartLine {
	out := make([]CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

// ItemCount sums the quantities of all lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, l := range c.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice sums unit price times quantity over all lines.
func (c *Cart) TotalPrice() float64 {
	total := 0.0
	for _, l := range c.lines {
		total += l.UnitPrice * float64(l.Quantity)
	}
	return total
}

// Snapshot copies the cart into its read model.
func (c *Cart) Snapshot() CartSnapshot {
	return CartSnapshot{
		Items:      c.Lines(),
		IsOpen:     c.isOpen,
		ItemCount:  c.ItemCount(),
		TotalPrice: c.TotalPrice(),
	}
}

func (c *Cart) index(key LineKey) int {
	for i, l := range c.lines {
		if l.ProductID == key.ProductID && l.Size == key.Size {
			return i
		}
	}
	return -1
}
