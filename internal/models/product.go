package models

import "time"

// Product represents a product in the store.
// Stock is only ever changed through a StockLedger.
type Product struct {
	ID            string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name          string    `json:"name" gorm:"type:varchar(100)" validate:"required,min=3,max=100"`
	Description   string    `json:"description" validate:"omitempty,max=500"`
	Price         float64   `json:"price" validate:"required,gt=0"`
	DiscountPrice float64   `json:"discount_price,omitempty" validate:"gte=0"`
	Stock         int       `json:"stock" gorm:"not null;default:0;check:stock >= 0" validate:"gte=0"`
	Sizes         []string  `json:"sizes,omitempty" gorm:"serializer:json"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// UnitPrice is the price a customer pays right now: the discounted price when
// one is set, otherwise the list price.
func (p *Product) UnitPrice() float64 {
	if p.DiscountPrice > 0 {
		return p.DiscountPrice
	}
	return p.Price
}

// HasSize reports whether size is one of the product's offered sizes.
func (p *Product) HasSize(size string) bool {
	for _, s := range p.Sizes {
		if s == size {
			return true
		}
	}
	return false
}
