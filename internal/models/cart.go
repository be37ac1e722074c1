package models

import "time"

// CartItem is a line in a customer's cart. Price is captured when the item is
// added or updated; LineTotal is derived.
type CartItem struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	CartID    string    `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string    `json:"product_id" gorm:"type:varchar(36)"`
	Name      string    `json:"name"`
	Quantity  int       `json:"quantity"`
	Size      string    `json:"size,omitempty" gorm:"type:varchar(20)"`
	Price     float64   `json:"price"`
	LineTotal float64   `json:"line_total"`
	CreatedAt time.Time `json:"created_at"`
}

// Cart is the per-customer staging area before checkout. There is exactly one
// cart per user; it is emptied on checkout, never deleted.
type Cart struct {
	ID          string     `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID      string     `json:"user_id" gorm:"uniqueIndex;type:varchar(36)"`
	Items       []CartItem `json:"items" gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	TotalAmount float64    `json:"total_amount"`
	TotalItems  int        `json:"total_items"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Recalculate derives line totals and cart totals from the items.
// Every cart mutation calls it before the cart is persisted.
func (c *Cart) Recalculate() {
	lineTotals := make([]float64, 0, len(c.Items))
	count := 0
	for i := range c.Items {
		c.Items[i].LineTotal = LineTotal(c.Items[i].Price, c.Items[i].Quantity)
		lineTotals = append(lineTotals, c.Items[i].LineTotal)
		count += c.Items[i].Quantity
	}
	c.TotalAmount = SumAmounts(lineTotals...)
	c.TotalItems = count
}

// FindItem returns the index of the item with the given id, or -1.
func (c *Cart) FindItem(itemID string) int {
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			return i
		}
	}
	return -1
}

// FindLine returns the index of the line for (productID, size), or -1.
func (c *Cart) FindLine(productID, size string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID && c.Items[i].Size == size {
			return i
		}
	}
	return -1
}

// RemoveItem deletes the item with the given id. It reports whether an item was removed.
func (c *Cart) RemoveItem(itemID string) bool {
	idx := c.FindItem(itemID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.Recalculate()
	return true
}

// Clear empties the cart.
func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.Recalculate()
}
