package repositories

import (
	"context"

	"toko-checkout/internal/models"
)

// ProductRepository defines the interface for catalog data access.
// Stock changes go through a StockLedger, never through Update.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
}
