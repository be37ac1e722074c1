package repositories

import "context"

// MockStockLedger is an in-memory StockLedger backed by a MockProductRepository.
// Every adjustment runs under the repository's write lock.
type MockStockLedger struct {
	products *MockProductRepository
}

// NewMockStockLedger creates a ledger over the given in-memory catalog.
func NewMockStockLedger(products *MockProductRepository) *MockStockLedger {
	return &MockStockLedger{products: products}
}

func (l *MockStockLedger) Reserve(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	return l.products.adjustStock(productID, -quantity)
}

func (l *MockStockLedger) Release(ctx context.Context, productID string, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}
	return l.products.adjustStock(productID, quantity)
}

func (l *MockStockLedger) Available(ctx context.Context, productID string) (int, error) {
	return l.products.stock(productID)
}
