package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// OrderFilter narrows an order listing. Zero values match everything.
type OrderFilter struct {
	Status models.OrderStatus
	UserID string
}

// OrderRepository defines the interface for order data access.
type OrderRepository interface {
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	Create(ctx context.Context, order *models.Order) error
	// Update persists the mutable parts of an order (status, payment info,
	// delivery info) and appends history entries that were not stored yet.
	// It fails with a Conflict error when the stored version differs from
	// order.Version, and increments order.Version on success.
	Update(ctx context.Context, order *models.Order) error
}
