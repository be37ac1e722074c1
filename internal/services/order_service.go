package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"
	"toko-checkout/internal/notify"
	"toko-checkout/internal/repositories"
	"toko-checkout/internal/telemetry"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const defaultPaymentMethod = "online"

var validate = validator.New()

// OrderItemInput is one explicitly requested line at checkout.
type OrderItemInput struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity" validate:"required,min=1"`
	Size      string `json:"size" validate:"omitempty,max=20"`
}

// CreateOrderInput is the checkout request. When Items is empty the
// customer's cart is checked out instead.
type CreateOrderInput struct {
	Items           []OrderItemInput       `json:"items" validate:"omitempty,dive"`
	ShippingAddress models.ShippingAddress `json:"shipping_address"`
	PaymentMethod   string                 `json:"payment_method" validate:"omitempty,max=30"`
}

// UpdateStatusInput is an administrator's status change.
type UpdateStatusInput struct {
	Status         models.OrderStatus `json:"status" validate:"required"`
	Note           string             `json:"note" validate:"omitempty,max=255"`
	Carrier        string             `json:"carrier" validate:"omitempty,max=100"`
	TrackingNumber string             `json:"tracking_number" validate:"omitempty,max=100"`
}

// OrderService handles checkout and the order lifecycle.
type OrderService struct {
	orderRepo         repositories.OrderRepository
	productRepo       repositories.ProductRepository
	cartRepo          repositories.CartRepository
	ledger            repositories.StockLedger
	notifier          notify.Notifier
	lowStockThreshold int
	locks             *keyedMutex
	now               func() time.Time
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	productRepo repositories.ProductRepository,
	cartRepo repositories.CartRepository,
	ledger repositories.StockLedger,
	notifier notify.Notifier,
	lowStockThreshold int,
) *OrderService {
	return &OrderService{
		orderRepo:         orderRepo,
		productRepo:       productRepo,
		cartRepo:          cartRepo,
		ledger:            ledger,
		notifier:          notifier,
		lowStockThreshold: lowStockThreshold,
		locks:             newKeyedMutex(),
		now:               time.Now,
	}
}

type reservation struct {
	productID string
	quantity  int
}

// CreateOrder reserves stock for every line, freezes prices and stores a
// pending order. Either every line is reserved and the order exists, or
// nothing is reserved.
func (s *OrderService) CreateOrder(ctx context.Context, principal models.Principal, input CreateOrderInput) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.CreateOrder")
	defer func() { telemetry.EndSpan(span, err) }()

	if principal.UserID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	if err := validate.Struct(input.ShippingAddress); err != nil {
		return nil, apperrors.Validation("invalid shipping address: %v", err)
	}

	lines, fromCart, err := s.resolveLines(ctx, principal.UserID, input.Items)
	if err != nil {
		return nil, err
	}

	reserved := make([]reservation, 0, len(lines))
	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		item, err := s.reserveLine(ctx, line)
		if err != nil {
			s.releaseAll(ctx, reserved)
			return nil, err
		}
		reserved = append(reserved, reservation{productID: item.ProductID, quantity: item.Quantity})
		items = append(items, item)
	}

	method := input.PaymentMethod
	if method == "" {
		method = defaultPaymentMethod
	}
	order = models.NewOrder(uuid.New().String(), principal.UserID, items, input.ShippingAddress, method, s.now())

	if err := s.orderRepo.Create(ctx, order); err != nil {
		s.releaseAll(ctx, reserved)
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	slog.Info("Order created", "order_id", order.ID, "user_id", order.UserID, "items", len(order.Items), "total", order.TotalAmount)

	if fromCart {
		s.clearCart(ctx, principal.UserID)
	}
	s.notify(ctx, notify.KindOrderCreated, order, "")
	s.checkLowStock(ctx, reserved)
	return order, nil
}

// resolveLines returns the explicit items, or the cart's lines when none are given.
func (s *OrderService) resolveLines(ctx context.Context, userID string, explicit []OrderItemInput) ([]OrderItemInput, bool, error) {
	if len(explicit) > 0 {
		for _, line := range explicit {
			if line.ProductID == "" {
				return nil, false, apperrors.Validation("product_id is required")
			}
			if line.Quantity < 1 {
				return nil, false, apperrors.Validation("quantity must be at least 1")
			}
		}
		return explicit, false, nil
	}

	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, false, err
	}
	if cart == nil || len(cart.Items) == 0 {
		return nil, false, apperrors.Validation("order has no items")
	}

	lines := make([]OrderItemInput, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, OrderItemInput{ProductID: item.ProductID, Quantity: item.Quantity, Size: item.Size})
	}
	return lines, true, nil
}

// reserveLine validates a line against the catalog, reserves its stock and
// returns the price-frozen order item.
func (s *OrderService) reserveLine(ctx context.Context, line OrderItemInput) (models.OrderItem, error) {
	product, err := s.productRepo.GetByID(ctx, line.ProductID)
	if err != nil {
		return models.OrderItem{}, err
	}
	if line.Size != "" && !product.HasSize(line.Size) {
		return models.OrderItem{}, apperrors.Validation("size %s is not available for product %s", line.Size, product.Name)
	}
	if err := s.ledger.Reserve(ctx, product.ID, line.Quantity); err != nil {
		return models.OrderItem{}, err
	}
	return models.OrderItem{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  line.Quantity,
		Size:      line.Size,
		Price:     product.UnitPrice(),
	}, nil
}

// releaseAll returns reserved stock. It runs even if ctx was cancelled.
func (s *OrderService) releaseAll(ctx context.Context, reserved []reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range reserved {
		if err := s.ledger.Release(ctx, r.productID, r.quantity); err != nil {
			slog.Error("Failed to release stock", "product_id", r.productID, "quantity", r.quantity, "err", err)
		}
	}
}

func (s *OrderService) clearCart(ctx context.Context, userID string) {
	cart, err := s.cartRepo.GetByUserID(ctx, userID)
	if err != nil {
		slog.Warn("Failed to load cart after checkout", "user_id", userID, "err", err)
		return
	}
	cart.Clear()
	if err := s.cartRepo.Save(ctx, cart); err != nil {
		slog.Warn("Failed to clear cart after checkout", "user_id", userID, "err", err)
	}
}

func (s *OrderService) checkLowStock(ctx context.Context, reserved []reservation) {
	seen := make(map[string]bool, len(reserved))
	for _, r := range reserved {
		if seen[r.productID] {
			continue
		}
		seen[r.productID] = true

		stock, err := s.ledger.Available(ctx, r.productID)
		if err != nil {
			slog.Warn("Failed to read stock level", "product_id", r.productID, "err", err)
			continue
		}
		if stock <= s.lowStockThreshold {
			notify.BestEffort(ctx, s.notifier, notify.Notification{
				Kind:      notify.KindLowStock,
				ProductID: r.productID,
				Stock:     stock,
			})
		}
	}
}

func (s *OrderService) notify(ctx context.Context, kind notify.Kind, order *models.Order, note string) {
	notify.BestEffort(ctx, s.notifier, notify.Notification{
		Kind:    kind,
		OrderID: order.ID,
		UserID:  order.UserID,
		Status:  string(order.Status),
		Amount:  order.TotalAmount,
		Note:    note,
	})
}

// GetOrder returns an order visible to the principal.
func (s *OrderService) GetOrder(ctx context.Context, principal models.Principal, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(order.UserID) {
		return nil, apperrors.Forbidden("not allowed to access order %s", id)
	}
	return order, nil
}

// ListMyOrders returns the principal's own orders, newest first.
func (s *OrderService) ListMyOrders(ctx context.Context, principal models.Principal) ([]models.Order, error) {
	if principal.UserID == "" {
		return nil, apperrors.New(apperrors.CodeUnauthorized, "authentication required")
	}
	return s.orderRepo.List(ctx, repositories.OrderFilter{UserID: principal.UserID})
}

// ListAllOrders returns every order, optionally filtered by status. Admin only.
func (s *OrderService) ListAllOrders(ctx context.Context, principal models.Principal, status models.OrderStatus) ([]models.Order, error) {
	if !principal.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}
	if status != "" && !status.Valid() {
		return nil, apperrors.Validation("unknown order status %q", status)
	}
	return s.orderRepo.List(ctx, repositories.OrderFilter{Status: status})
}

// Cancel cancels an order on behalf of its owner or an administrator.
// A completed payment is flagged refunded and all reserved stock is released.
func (s *OrderService) Cancel(ctx context.Context, principal models.Principal, orderID, reason string) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.Cancel")
	defer func() { telemetry.EndSpan(span, err) }()

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err = s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(order.UserID) {
		return nil, apperrors.Forbidden("not allowed to cancel order %s", orderID)
	}
	return s.cancelLocked(ctx, principal, order, reason)
}

// cancelLocked must be called with the order's lock held.
func (s *OrderService) cancelLocked(ctx context.Context, principal models.Principal, order *models.Order, reason string) (*models.Order, error) {
	note := reason
	if note == "" {
		note = "Cancelled by customer"
		if principal.IsAdmin() && principal.UserID != order.UserID {
			note = "Cancelled by admin"
		}
	}
	if err := order.TransitionTo(models.OrderStatusCancelled, note, s.now()); err != nil {
		return nil, err
	}
	if order.PaymentInfo.Status == models.PaymentStatusCompleted {
		order.PaymentInfo.Status = models.PaymentStatusRefunded
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	reserved := make([]reservation, 0, len(order.Items))
	for _, item := range order.Items {
		reserved = append(reserved, reservation{productID: item.ProductID, quantity: item.Quantity})
	}
	s.releaseAll(ctx, reserved)

	slog.Info("Order cancelled", "order_id", order.ID, "by", principal.UserID, "payment_status", order.PaymentInfo.Status)
	s.notify(ctx, notify.KindOrderCancelled, order, note)
	return order, nil
}

// UpdateOrderStatus moves an order along the state machine. Admin only.
// Cancelling through this path behaves exactly like Cancel.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, principal models.Principal, orderID string, input UpdateStatusInput) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "OrderService.UpdateOrderStatus")
	defer func() { telemetry.EndSpan(span, err) }()

	if !principal.IsAdmin() {
		return nil, apperrors.Forbidden("admin role required")
	}
	if !input.Status.Valid() {
		return nil, apperrors.Validation("unknown order status %q", input.Status)
	}

	unlock := s.locks.Lock(orderID)
	defer unlock()

	order, err = s.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if input.Status == models.OrderStatusCancelled {
		return s.cancelLocked(ctx, principal, order, input.Note)
	}

	note := input.Note
	if note == "" {
		note = fmt.Sprintf("Status updated to %s", input.Status)
	}
	now := s.now()
	if err := order.TransitionTo(input.Status, note, now); err != nil {
		return nil, err
	}
	switch input.Status {
	case models.OrderStatusShipped:
		if input.Carrier != "" {
			order.DeliveryInfo.Carrier = input.Carrier
		}
		if input.TrackingNumber != "" {
			order.DeliveryInfo.TrackingNumber = input.TrackingNumber
		}
		order.DeliveryInfo.ShippedAt = &now
	case models.OrderStatusDelivered:
		order.DeliveryInfo.DeliveredAt = &now
	}
	if err := s.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	slog.Info("Order status updated", "order_id", order.ID, "status", order.Status)
	s.notify(ctx, notify.KindOrderStatusUpdated, order, note)
	return order, nil
}
