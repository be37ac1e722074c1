package services

import (
	"context"
	"log/slog"
	"time"

	"toko-checkout/internal/apperrors"
	"toko-checkout/internal/models"
	"toko-checkout/internal/notify"
	"toko-checkout/internal/telemetry"
	"toko-checkout/pkg/gateway"
)

// PaymentConfig holds the merchant credentials for the payment gateway.
type PaymentConfig struct {
	KeyID     string
	KeySecret string
	Currency  string
	Timeout   time.Duration
}

// PaymentIntent is returned to the client so it can open the gateway checkout.
type PaymentIntent struct {
	IntentID string `json:"intent_id"`
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"` // minor units
	Currency string `json:"currency"`
	KeyID    string `json:"key_id"`
}

// VerifyPaymentInput is the gateway callback payload.
type VerifyPaymentInput struct {
	GatewayOrderID   string `json:"gateway_order_id" validate:"required"`
	GatewayPaymentID string `json:"gateway_payment_id" validate:"required"`
	Signature        string `json:"signature" validate:"required"`
}

// PaymentService creates payment intents and applies verified gateway
// callbacks to orders. It shares the order service's per-order locks.
type PaymentService struct {
	orders  *OrderService
	gateway gateway.Client
	cfg     PaymentConfig
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(orders *OrderService, gw gateway.Client, cfg PaymentConfig) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "IDR"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &PaymentService{
		orders:  orders,
		gateway: gw,
		cfg:     cfg,
	}
}

// CreatePaymentIntent mints a gateway intent for a pending order and records
// its id on the order. Every call mints a new intent.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, principal models.Principal, orderID string) (intent *PaymentIntent, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.CreatePaymentIntent")
	defer func() { telemetry.EndSpan(span, err) }()

	unlock := s.orders.locks.Lock(orderID)
	defer unlock()

	order, err := s.orders.orderRepo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.CanAccess(order.UserID) {
		return nil, apperrors.Forbidden("not allowed to pay for order %s", orderID)
	}
	if order.Status != models.OrderStatusPending || order.PaymentInfo.Status == models.PaymentStatusCompleted {
		return nil, apperrors.New(apperrors.CodeInvalidStatusTransition, "order %s is %s and cannot be paid", orderID, order.Status)
	}

	amount := models.ToMinorUnits(order.TotalAmount)
	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	created, err := s.gateway.CreateIntent(gwCtx, amount, s.cfg.Currency, order.ID)
	if err != nil {
		slog.Error("Failed to create payment intent", "order_id", orderID, "err", err)
		return nil, apperrors.Wrap(apperrors.CodeGateway, err, "failed to create payment intent")
	}

	if previous := order.PaymentInfo.GatewayOrderID; previous != "" {
		slog.Warn("Replacing payment intent", "order_id", order.ID, "replaced_intent_id", previous, "intent_id", created.ID)
	}
	order.PaymentInfo.GatewayOrderID = created.ID
	if order.PaymentInfo.Status == models.PaymentStatusFailed {
		// A new intent is a new attempt.
		order.PaymentInfo.Status = models.PaymentStatusPending
	}
	if err := s.orders.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	slog.Info("Payment intent created", "order_id", order.ID, "intent_id", created.ID, "amount", amount)
	return &PaymentIntent{
		IntentID: created.ID,
		OrderID:  order.ID,
		Amount:   amount,
		Currency: s.cfg.Currency,
		KeyID:    s.cfg.KeyID,
	}, nil
}

// VerifyAndApply checks the callback signature and applies the outcome to the
// order. Replaying a verified callback is a no-op.
func (s *PaymentService) VerifyAndApply(ctx context.Context, input VerifyPaymentInput) (order *models.Order, err error) {
	ctx, span := telemetry.StartSpan(ctx, "PaymentService.VerifyAndApply")
	defer func() { telemetry.EndSpan(span, err) }()

	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" || input.Signature == "" {
		return nil, apperrors.Validation("gateway_order_id, gateway_payment_id and signature are required")
	}

	found, err := s.orders.orderRepo.GetByGatewayOrderID(ctx, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	unlock := s.orders.locks.Lock(found.ID)
	defer unlock()

	// Reload under the lock; a concurrent writer may have changed it.
	order, err = s.orders.orderRepo.GetByID(ctx, found.ID)
	if err != nil {
		return nil, err
	}

	valid := verifyPaymentSignature(s.cfg.KeySecret, input.GatewayOrderID, input.GatewayPaymentID, input.Signature)

	if order.PaymentInfo.Status == models.PaymentStatusCompleted {
		if valid {
			return order, nil
		}
		return nil, apperrors.New(apperrors.CodeVerificationFailed, "payment signature mismatch")
	}

	if !valid {
		if order.Status != models.OrderStatusPending || order.PaymentInfo.Status == models.PaymentStatusRefunded {
			// Settled orders keep their payment state.
			slog.Warn("Payment signature mismatch on settled order", "order_id", order.ID, "status", order.Status, "payment_status", order.PaymentInfo.Status)
			return nil, apperrors.New(apperrors.CodeVerificationFailed, "payment signature mismatch")
		}
		order.PaymentInfo.Status = models.PaymentStatusFailed
		if err := s.orders.orderRepo.Update(ctx, order); err != nil {
			return nil, err
		}
		slog.Warn("Payment signature mismatch", "order_id", order.ID, "intent_id", input.GatewayOrderID)
		s.orders.notify(ctx, notify.KindPaymentFailed, order, "signature mismatch")
		return nil, apperrors.New(apperrors.CodeVerificationFailed, "payment signature mismatch")
	}

	if order.Status != models.OrderStatusPending {
		return nil, apperrors.InvalidStatusTransition(string(order.Status), string(models.OrderStatusProcessing))
	}

	amountPaid := order.TotalAmount
	gwCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()
	if payment, err := s.gateway.FetchPayment(gwCtx, input.GatewayPaymentID); err != nil {
		slog.Warn("Failed to fetch payment details", "order_id", order.ID, "payment_id", input.GatewayPaymentID, "err", err)
	} else {
		order.PaymentInfo.Method = payment.Method
		amountPaid = models.FromMinorUnits(payment.Amount)
		if expected := models.ToMinorUnits(order.TotalAmount); payment.Amount != expected {
			slog.Warn("Paid amount differs from order total", "order_id", order.ID, "payment_id", input.GatewayPaymentID, "paid_minor", payment.Amount, "expected_minor", expected)
		}
	}

	paymentID := input.GatewayPaymentID
	order.PaymentInfo.Status = models.PaymentStatusCompleted
	order.PaymentInfo.GatewayPaymentID = &paymentID
	order.PaymentInfo.AmountPaid = amountPaid
	if err := order.TransitionTo(models.OrderStatusProcessing, "Payment verified", s.orders.now()); err != nil {
		return nil, err
	}
	if err := s.orders.orderRepo.Update(ctx, order); err != nil {
		return nil, err
	}

	slog.Info("Payment verified", "order_id", order.ID, "payment_id", paymentID, "amount_paid", amountPaid)
	s.orders.notify(ctx, notify.KindOrderPaid, order, "")
	return order, nil
}
