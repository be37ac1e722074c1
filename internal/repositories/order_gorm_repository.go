package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMOrderRepository is a GORM implementation of OrderRepository.
type GORMOrderRepository struct {
	db *gorm.DB
}

// NewGORMOrderRepository creates a new instance of GORMOrderRepository.
func NewGORMOrderRepository(db *gorm.DB) *GORMOrderRepository {
	return &GORMOrderRepository{db: db}
}

func (r *GORMOrderRepository) withAssociations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

// List returns orders matching the filter, newest first.
func (r *GORMOrderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	query := r.withAssociations(ctx).Order("created_at DESC")
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	var orders []models.Order
	if err := query.Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, nil
}

// GetByID retrieves an order with its items and history.
func (r *GORMOrderRepository) GetByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	if err := r.withAssociations(ctx).First(&order, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order with ID %s not found", id)
		}
		return nil, fmt.Errorf("failed to get order by ID %s: %w", id, err)
	}
	return &order, nil
}

// GetByGatewayOrderID finds the order a payment intent was created for.
func (r *GORMOrderRepository) GetByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.withAssociations(ctx).First(&order, "payment_gateway_order_id = ?", gatewayOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order for payment intent %s not found", gatewayOrderID)
		}
		return nil, fmt.Errorf("failed to get order by payment intent %s: %w", gatewayOrderID, err)
	}
	return &order, nil
}

// Create inserts the order with its items and initial history.
func (r *GORMOrderRepository) Create(ctx context.Context, order *models.Order) error {
	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

// Update applies an optimistic-locked write of the mutable order fields.
func (r *GORMOrderRepository) Update(ctx context.Context, order *models.Order) error {
	now := time.Now()
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Order{}).
			Where("id = ? AND version = ?", order.ID, order.Version).
			Updates(map[string]interface{}{
				"status":                     order.Status,
				"payment_gateway_order_id":   order.PaymentInfo.GatewayOrderID,
				"payment_gateway_payment_id": order.PaymentInfo.GatewayPaymentID,
				"payment_status":             order.PaymentInfo.Status,
				"payment_method":             order.PaymentInfo.Method,
				"payment_amount_paid":        order.PaymentInfo.AmountPaid,
				"delivery_carrier":           order.DeliveryInfo.Carrier,
				"delivery_tracking_number":   order.DeliveryInfo.TrackingNumber,
				"delivery_shipped_at":        order.DeliveryInfo.ShippedAt,
				"delivery_delivered_at":      order.DeliveryInfo.DeliveredAt,
				"version":                    gorm.Expr("version + 1"),
				"updated_at":                 now,
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update order %s: %w", order.ID, res.Error)
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Count(&count).Error; err != nil {
				return fmt.Errorf("failed to check order %s: %w", order.ID, err)
			}
			if count == 0 {
				return apperrors.NotFound("order with ID %s not found for update", order.ID)
			}
			return apperrors.New(apperrors.CodeConflict, "order %s was modified concurrently", order.ID)
		}

		for i := range order.StatusHistory {
			entry := &order.StatusHistory[i]
			if entry.ID != 0 {
				continue
			}
			entry.OrderID = order.ID
			if err := tx.Create(entry).Error; err != nil {
				return fmt.Errorf("failed to append status history for order %s: %w", order.ID, err)
			}
		}

		order.Version++
		order.UpdatedAt = now
		return nil
	})
}
