package repositories

import (
	"context"
	"errors"
	"fmt"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"

	"gorm.io/gorm"
)

// StockLedger owns the available quantity of every product.
type StockLedger interface {
	// Reserve atomically decrements stock by quantity if at least quantity is
	// available. Otherwise it returns an InsufficientStock error and changes nothing.
	Reserve(ctx context.Context, productID string, quantity int) error
	// Release increments stock by quantity. Release quantities always come from
	// a reservation recorded on an order.
	Release(ctx context.Context, productID string, quantity int) error
	// Available returns the current stock of a product.
	Available(ctx context.Context, productID string) (int, error)
}

func validateQuantity(quantity int) error {
	if quantity <= 0 {
		return apperrors.Validation("quantity must be positive, got %d", quantity)
	}
	return nil
}

// GORMStockLedger keeps stock in the products table and relies on a
// conditional UPDATE for atomicity.
type GORMStockLedger struct {
	db *gorm.DB
}

// NewGORMStockLedger creates a new instance of GORMStockLedger.
func NewGORMStockLedger(db *gorm.DB) *GORMStockLedger {
	return &GORMStockLedger{db: db}
}

// Reserve decrements stock with a single compare-and-decrement statement.
func (l *GORMStockLedger) Reserve(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, quantity).
		UpdateColumn("stock", gorm.Expr("stock - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	available, err := l.Available(ctx, productID)
	if err != nil {
		return err
	}
	return apperrors.InsufficientStock(productID, quantity, available)
}

// Release increments stock.
func (l *GORMStockLedger) Release(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	res := l.db.WithContext(ctx).Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock", gorm.Expr("stock + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("failed to release stock for product %s: %w", productID, res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("product with ID %s not found", productID)
	}
	return nil
}

// Available reads the current stock of a product.
func (l *GORMStockLedger) Available(ctx context.Context, productID string) (int, error) {
	var product models.Product
	err := l.db.WithContext(ctx).Select("id", "stock").First(&product, "id = ?", productID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, apperrors.NotFound("product with ID %s not found", productID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read stock for product %s: %w", productID, err)
	}
	return product.Stock, nil
}
