package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service *services.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService) *OrderHandler {
	return &OrderHandler{
		service: service,
	}
}

// RegisterRoutes registers the customer order routes. The router must be authenticated.
func (h *OrderHandler) RegisterRoutes(router fiber.Router) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", h.HandleGetMyOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Post("/:id/cancel", h.HandleCancelOrder)
}

// RegisterAdminRoutes registers the administrator order routes. The router
// must be authenticated and restricted to admins.
func (h *OrderHandler) RegisterAdminRoutes(router fiber.Router) {
	adminRoutes := router.Group("/orders")
	adminRoutes.Get("/", h.HandleGetAllOrders)
	adminRoutes.Patch("/:id/status", h.HandleUpdateOrderStatus)
}

// CancelOrderRequest is the optional body of POST /orders/:id/cancel.
type CancelOrderRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=255"`
}

// HandleCreateOrder checks out the cart, or the explicit items in the body.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req services.CreateOrderInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	order, err := h.service.CreateOrder(c.UserContext(), middleware.PrincipalFrom(c), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleGetMyOrders lists the caller's orders.
func (h *OrderHandler) HandleGetMyOrders(c *fiber.Ctx) error {
	orders, err := h.service.ListMyOrders(c.UserContext(), middleware.PrincipalFrom(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), middleware.PrincipalFrom(c), c.Params("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	var req CancelOrderRequest
	if len(c.Body()) > 0 {
		if handled, err := parseBody(c, &req); handled {
			return err
		}
	}
	order, err := h.service.Cancel(c.UserContext(), middleware.PrincipalFrom(c), c.Params("id"), req.Reason)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}

// HandleGetAllOrders lists every order, optionally filtered by ?status=.
func (h *OrderHandler) HandleGetAllOrders(c *fiber.Ctx) error {
	status := models.OrderStatus(c.Query("status"))
	orders, err := h.service.ListAllOrders(c.UserContext(), middleware.PrincipalFrom(c), status)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(orders)
}

// HandleUpdateOrderStatus applies an administrator's status change.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req services.UpdateStatusInput
	if handled, err := parseBody(c, &req); handled {
		return err
	}
	order, err := h.service.UpdateOrderStatus(c.UserContext(), middleware.PrincipalFrom(c), c.Params("id"), req)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(order)
}
