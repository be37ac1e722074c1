package models

import (
	"time"

	"toko-checkout/internal/apperrors"
)

// OrderItem represents a single item within an order.
type OrderItem struct {
	ID        uint    `json:"-" gorm:"primaryKey"`
	OrderID   string  `json:"-" gorm:"index;type:varchar(36)"`
	ProductID string  `json:"product_id" gorm:"type:varchar(36)"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty" gorm:"type:varchar(20)"`
	Price     float64 `json:"price"` // Price at the time of order
	LineTotal float64 `json:"line_total"`
}

// ShippingAddress is where an order is delivered.
type ShippingAddress struct {
	FullName   string `json:"full_name" validate:"required,max=100"`
	Phone      string `json:"phone" validate:"required,max=30"`
	Street     string `json:"street" validate:"required,max=255"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"omitempty,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=60"`
}

// PaymentInfo is the payment leg of an order.
type PaymentInfo struct {
	GatewayOrderID   string        `json:"gateway_order_id" gorm:"type:varchar(64);index"`
	GatewayPaymentID *string       `json:"gateway_payment_id" gorm:"type:varchar(64)"`
	Status           PaymentStatus `json:"status" gorm:"type:varchar(20)"`
	Method           string        `json:"method" gorm:"type:varchar(30)"`
	AmountPaid       float64       `json:"amount_paid"`
}

// DeliveryInfo holds shipment tracking details.
type DeliveryInfo struct {
	Carrier        string     `json:"carrier,omitempty"`
	TrackingNumber string     `json:"tracking_number,omitempty"`
	ShippedAt      *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt    *time.Time `json:"delivered_at,omitempty"`
}

// StatusHistoryEntry is one entry in an order's append-only audit trail.
type StatusHistoryEntry struct {
	ID        uint        `json:"-" gorm:"primaryKey"`
	OrderID   string      `json:"-" gorm:"index;type:varchar(36)"`
	Status    OrderStatus `json:"status" gorm:"type:varchar(20)"`
	Note      string      `json:"note,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}

// Order represents a customer order. After creation only the payment info,
// status, delivery info and status history change.
type Order struct {
	ID              string               `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string               `json:"user_id" gorm:"index;type:varchar(36)"`
	Items           []OrderItem          `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount     float64              `json:"total_amount"`
	ShippingAddress ShippingAddress      `json:"shipping_address" gorm:"embedded;embeddedPrefix:shipping_"`
	PaymentInfo     PaymentInfo          `json:"payment_info" gorm:"embedded;embeddedPrefix:payment_"`
	Status          OrderStatus          `json:"status" gorm:"type:varchar(20);index"`
	DeliveryInfo    DeliveryInfo         `json:"delivery_info" gorm:"embedded;embeddedPrefix:delivery_"`
	StatusHistory   []StatusHistoryEntry `json:"status_history" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Version         int                  `json:"-" gorm:"not null;default:0"`
	CreatedAt       time.Time            `json:"created_at"`
	UpdatedAt       time.Time            `json:"updated_at"`
}

// NewOrder builds a pending order from price-frozen items. The total and the
// first history entry are derived here.
func NewOrder(id, userID string, items []OrderItem, address ShippingAddress, paymentMethod string, at time.Time) *Order {
	lineTotals := make([]float64, 0, len(items))
	for i := range items {
		items[i].OrderID = id
		items[i].LineTotal = LineTotal(items[i].Price, items[i].Quantity)
		lineTotals = append(lineTotals, items[i].LineTotal)
	}
	return &Order{
		ID:              id,
		UserID:          userID,
		Items:           items,
		TotalAmount:     SumAmounts(lineTotals...),
		ShippingAddress: address,
		PaymentInfo: PaymentInfo{
			Status: PaymentStatusPending,
			Method: paymentMethod,
		},
		Status: OrderStatusPending,
		StatusHistory: []StatusHistoryEntry{
			{OrderID: id, Status: OrderStatusPending, Note: "Order placed", Timestamp: at},
		},
		CreatedAt: at,
		UpdatedAt: at,
	}
}

// TransitionTo moves the order to next and appends a history entry.
// Illegal transitions leave the order unchanged.
func (o *Order) TransitionTo(next OrderStatus, note string, at time.Time) error {
	if !o.Status.CanTransitionTo(next) {
		return apperrors.InvalidStatusTransition(string(o.Status), string(next))
	}
	o.Status = next
	o.StatusHistory = append(o.StatusHistory, StatusHistoryEntry{
		OrderID:   o.ID,
		Status:    next,
		Note:      note,
		Timestamp: at,
	})
	o.UpdatedAt = at
	return nil
}

// Cancellable reports whether the order may still be cancelled.
func (o *Order) Cancellable() bool {
	return o.Status.CanTransitionTo(OrderStatusCancelled)
}

// LastHistoryStatus returns the status recorded by the latest history entry.
func (o *Order) LastHistoryStatus() OrderStatus {
	if len(o.StatusHistory) == 0 {
		return ""
	}
	return o.StatusHistory[len(o.StatusHistory)-1].Status
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	c := *o
	c.Items = append([]OrderItem(nil), o.Items...)
	c.StatusHistory = append([]StatusHistoryEntry(nil), o.StatusHistory...)
	if o.PaymentInfo.GatewayPaymentID != nil {
		id := *o.PaymentInfo.GatewayPaymentID
		c.PaymentInfo.GatewayPaymentID = &id
	}
	if o.DeliveryInfo.ShippedAt != nil {
		t := *o.DeliveryInfo.ShippedAt
		c.DeliveryInfo.ShippedAt = &t
	}
	if o.DeliveryInfo.DeliveredAt != nil {
		t := *o.DeliveryInfo.DeliveredAt
		c.DeliveryInfo.DeliveredAt = &t
	}
	return &c
}
