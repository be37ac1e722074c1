package repositories

import (
	"context"
	"sync"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"

	"github.com/google/uuid"
)

// MockCartRepository is an in-memory implementation of CartRepository.
type MockCartRepository struct {
	carts map[string]models.Cart // keyed by user ID
	mu    sync.RWMutex
}

// NewMockCartRepository creates a new instance of MockCartRepository.
func NewMockCartRepository() *MockCartRepository {
	return &MockCartRepository{
		carts: make(map[string]models.Cart),
	}
}

// GetByUserID returns a copy of the user's cart.
func (r *MockCartRepository) GetByUserID(ctx context.Context, userID string) (*models.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cart, ok := r.carts[userID]
	if !ok {
		return nil, apperrors.NotFound("cart for user %s not found", userID)
	}
	cart.Items = append([]models.CartItem(nil), cart.Items...)
	return &cart, nil
}

// Save stores a copy of the cart.
func (r *MockCartRepository) Save(ctx context.Context, cart *models.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cart.ID == "" {
		cart.ID = uuid.New().String()
	}
	now := time.Now()
	if cart.CreatedAt.IsZero() {
		cart.CreatedAt = now
	}
	cart.UpdatedAt = now

	stored := *cart
	stored.Items = append([]models.CartItem(nil), cart.Items...)
	for i := range stored.Items {
		stored.Items[i].CartID = cart.ID
	}
	r.carts[cart.UserID] = stored
	return nil
}
