package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
)

// PaymentHandler handles payment intent creation and the gateway callback.
type PaymentHandler struct {
	service *services.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

// RegisterRoutes registers the intent route on an authenticated router.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	router.Post("/payments/intents", h.HandleCreateIntent)
}

// RegisterCallbackRoutes registers the verification callback. It is not
// behind JWT auth; the signature authenticates it.
func (h *PaymentHandler) RegisterCallbackRoutes(router fiber.Router) {
	router.Post("/payments/verify", h.HandleVerify)
}

// CreateIntentRequest is the body of POST /payments/intents.
type CreateIntentRequest struct {
	OrderID string `json:"order_id" validate:"required"`
}

func (h *PaymentHandler) HandleCreateIntent(c *fiber.Ctx) error {
	var req CreateIntentRequest
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	intent, err := h.service.CreatePaymentIntent(c.UserContext(), middleware.PrincipalFrom(c), req.OrderID)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(intent)
}

func (h *PaymentHandler) HandleVerify(c *fiber.Ctx) error {
	var req services.VerifyPaymentInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	order, err := h.service.VerifyAndApply(c.UserContext(), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{
		"message": "Payment verified",
		"order":   order,
	})
}
