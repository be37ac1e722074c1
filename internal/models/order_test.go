package models_test

import (
	"testing"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder() *models.Order {
	items := []models.OrderItem{
		{ProductID: "prod-1", Name: "Laptop", Quantity: 2, Price: 100},
		{ProductID: "prod-2", Name: "Mouse", Quantity: 3, Price: 19.99},
	}
	return models.NewOrder("order-1", "user-1", items, models.ShippingAddress{City: "Bandung"}, "card", time.Now())
}

func TestNewOrder(t *testing.T) {
	order := newTestOrder()

	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Equal(t, models.PaymentStatusPending, order.PaymentInfo.Status)
	assert.Equal(t, 200.0, order.Items[0].LineTotal)
	assert.Equal(t, 59.97, order.Items[1].LineTotal)
	assert.Equal(t, 259.97, order.TotalAmount)
	require.Len(t, order.StatusHistory, 1)
	assert.Equal(t, models.OrderStatusPending, order.LastHistoryStatus())
	assert.Equal(t, "order-1", order.Items[0].OrderID)
}

func TestOrderStatusTransitions(t *testing.T) {
	all := []models.OrderStatus{
		models.OrderStatusPending,
		models.OrderStatusProcessing,
		models.OrderStatusShipped,
		models.OrderStatusDelivered,
		models.OrderStatusCancelled,
	}
	allowed := map[models.OrderStatus][]models.OrderStatus{
		models.OrderStatusPending:    {models.OrderStatusProcessing, models.OrderStatusCancelled},
		models.OrderStatusProcessing: {models.OrderStatusShipped, models.OrderStatusCancelled},
		models.OrderStatusShipped:    {models.OrderStatusDelivered, models.OrderStatusCancelled},
	}

	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, models.OrderStatusDelivered.Terminal())
	assert.True(t, models.OrderStatusCancelled.Terminal())
	assert.False(t, models.OrderStatusShipped.Terminal())
	assert.False(t, models.OrderStatus("lost").Valid())
}

func TestTransitionToAppendsHistory(t *testing.T) {
	order := newTestOrder()

	require.NoError(t, order.TransitionTo(models.OrderStatusProcessing, "paid", time.Now()))
	require.NoError(t, order.TransitionTo(models.OrderStatusShipped, "", time.Now()))

	assert.Equal(t, models.OrderStatusShipped, order.Status)
	require.Len(t, order.StatusHistory, 3)
	assert.Equal(t, "paid", order.StatusHistory[1].Note)
	assert.Equal(t, order.Status, order.LastHistoryStatus())
}

func TestTransitionToRejectsIllegalMove(t *testing.T) {
	order := newTestOrder()

	err := order.TransitionTo(models.OrderStatusShipped, "", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	assert.Equal(t, models.OrderStatusPending, order.Status)
	assert.Len(t, order.StatusHistory, 1)

	require.NoError(t, order.TransitionTo(models.OrderStatusProcessing, "", time.Now()))
	require.NoError(t, order.TransitionTo(models.OrderStatusShipped, "", time.Now()))
	require.NoError(t, order.TransitionTo(models.OrderStatusDelivered, "", time.Now()))

	err = order.TransitionTo(models.OrderStatusCancelled, "", time.Now())
	assert.ErrorIs(t, err, apperrors.ErrInvalidStatusTransition)
	assert.False(t, order.Cancellable())
	assert.Equal(t, models.OrderStatusDelivered, order.LastHistoryStatus())
}

func TestOrderCloneIsDeep(t *testing.T) {
	order := newTestOrder()
	paymentID := "pay_1"
	order.PaymentInfo.GatewayPaymentID = &paymentID

	clone := order.Clone()
	clone.Items[0].Price = 1
	*clone.PaymentInfo.GatewayPaymentID = "pay_2"
	require.NoError(t, clone.TransitionTo(models.OrderStatusCancelled, "", time.Now()))

	assert.Equal(t, 100.0, order.Items[0].Price)
	assert.Equal(t, "pay_1", *order.PaymentInfo.GatewayPaymentID)
	assert.Len(t, order.StatusHistory, 1)
}

func TestPrincipalCanAccess(t *testing.T) {
	owner := models.Principal{UserID: "user-1", Role: models.RoleCustomer}
	other := models.Principal{UserID: "user-2", Role: models.RoleCustomer}
	admin := models.Principal{UserID: "admin-1", Role: models.RoleAdmin}

	assert.True(t, owner.CanAccess("user-1"))
	assert.False(t, other.CanAccess("user-1"))
	assert.True(t, admin.CanAccess("user-1"))
	assert.False(t, models.Principal{}.CanAccess(""))
}
