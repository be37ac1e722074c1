package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"

	"github.com/google/uuid"
)

// MockOrderRepository is an in-memory implementation of OrderRepository.
// Orders are deep-copied on the way in and out.
type MockOrderRepository struct {
	orders  map[string]*models.Order
	nextSeq uint
	mu      sync.RWMutex
}

// NewMockOrderRepository creates a new instance of MockOrderRepository.
func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{
		orders: make(map[string]*models.Order),
	}
}

// List returns orders matching the filter, newest first.
func (r *MockOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && order.UserID != filter.UserID {
			continue
		}
		orderList = append(orderList, *order.Clone())
	}
	sort.Slice(orderList, func(i, j int) bool {
		return orderList[i].CreatedAt.After(orderList[j].CreatedAt)
	})
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MockOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order with ID %s not found", id)
	}
	return order.Clone(), nil
}

// GetByGatewayOrderID returns the order holding the given payment intent id.
func (r *MockOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, order := range r.orders {
		if gatewayOrderID != "" && order.PaymentInfo.GatewayOrderID == gatewayOrderID {
			return order.Clone(), nil
		}
	}
	return nil, apperrors.NotFound("order for payment intent %s not found", gatewayOrderID)
}

// Create adds a new order.
func (r *MockOrderRepository) Create(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}
	order.UpdatedAt = order.CreatedAt
	r.assignHistoryIDs(order)
	r.orders[order.ID] = order.Clone()
	return nil
}

// Update replaces the mutable fields of an order after a version check.
func (r *MockOrderRepository) Update(ctx context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.orders[order.ID]
	if !ok {
		return apperrors.NotFound("order with ID %s not found for update", order.ID)
	}
	if stored.Version != order.Version {
		return apperrors.New(apperrors.CodeConflict, "order %s was modified concurrently", order.ID)
	}

	r.assignHistoryIDs(order)
	order.Version++
	order.UpdatedAt = time.Now()

	updated := order.Clone()
	// Items are immutable after creation.
	updated.Items = stored.Items
	updated.TotalAmount = stored.TotalAmount
	r.orders[order.ID] = updated
	return nil
}

func (r *MockOrderRepository) assignHistoryIDs(order *models.Order) {
	for i := range order.StatusHistory {
		if order.StatusHistory[i].ID == 0 {
			r.nextSeq++
			order.StatusHistory[i].ID = r.nextSeq
			order.StatusHistory[i].OrderID = order.ID
		}
	}
}
