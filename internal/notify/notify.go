// Package notify delivers fire-and-forget messages about order lifecycle events
// to the notification service.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// Kind identifies a notification. It doubles as the broker routing key.
type Kind string

const (
	KindOrderCreated       Kind = "order.created"
	KindOrderPaid          Kind = "order.paid"
	KindPaymentFailed      Kind = "order.payment_failed"
	KindOrderStatusUpdated Kind = "order.status_updated"
	KindOrderCancelled     Kind = "order.cancelled"
	KindLowStock           Kind = "inventory.low_stock"
)

// sendTimeout bounds a single best-effort delivery.
const sendTimeout = 3 * time.Second

// Notification is the payload sent to the notification service.
type Notification struct {
	Kind       Kind      `json:"kind"`
	OrderID    string    `json:"order_id,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
	Status     string    `json:"status,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	ProductID  string    `json:"product_id,omitempty"`
	Stock      int       `json:"stock,omitempty"`
	Note       string    `json:"note,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Notifier sends notifications.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// Publisher is a message broker that accepts raw payloads.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, key string, body []byte) error
}

// BrokerNotifier encodes notifications as JSON and hands them to a Publisher.
type BrokerNotifier struct {
	publisher Publisher
}

// NewBrokerNotifier creates a notifier on top of a message broker.
func NewBrokerNotifier(publisher Publisher) *BrokerNotifier {
	return &BrokerNotifier{publisher: publisher}
}

func (b *BrokerNotifier) Notify(ctx context.Context, n Notification) error {
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	key := n.OrderID
	if key == "" {
		key = n.ProductID
	}
	return b.publisher.Publish(ctx, string(n.Kind), key, body)
}

// LogNotifier only logs notifications. It is used when no broker is configured.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, n Notification) error {
	slog.Info("Notification", "kind", n.Kind, "order_id", n.OrderID, "user_id", n.UserID, "status", n.Status, "product_id", n.ProductID)
	return nil
}

// BestEffort sends n and swallows any failure after logging it. Delivery is
// detached from the caller's cancellation and bounded by its own timeout.
func BestEffort(ctx context.Context, notifier Notifier, n Notification) {
	if notifier == nil {
		return
	}
	if n.OccurredAt.IsZero() {
		n.OccurredAt = time.Now()
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sendTimeout)
	defer cancel()

	if err := notifier.Notify(sendCtx, n); err != nil {
		slog.Warn("Failed to send notification", "kind", n.Kind, "order_id", n.OrderID, "err", err)
	}
}
