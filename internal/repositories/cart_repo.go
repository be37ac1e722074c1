package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// CartRepository defines the interface for cart data access.
type CartRepository interface {
	// GetByUserID returns the user's cart or a NotFound error.
	GetByUserID(ctx context.Context, userID string) (*models.Cart, error)
	// Save inserts or replaces the cart together with its items.
	Save(ctx context.Context, cart *models.Cart) error
}
