package handlers

import (
	"toko-checkout/internal/middleware"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
)

// Handlers groups every HTTP handler of the API.
type Handlers struct {
	Auth    *AuthHandler
	Cart    *CartHandler
	Order   *OrderHandler
	Payment *PaymentHandler
}

// RegisterAPI mounts all routes under router. Public routes are registered
// before the authenticated group so its middleware never runs for them.
func RegisterAPI(router fiber.Router, authService *services.AuthService, h Handlers) {
	h.Auth.RegisterRoutes(router)
	h.Payment.RegisterCallbackRoutes(router)

	protectedRoutes := router.Group("", middleware.AuthRequired(authService))
	h.Cart.RegisterRoutes(protectedRoutes)
	h.Order.RegisterRoutes(protectedRoutes)
	h.Payment.RegisterRoutes(protectedRoutes)

	adminRoutes := protectedRoutes.Group("/admin", middleware.AdminOnly())
	h.Order.RegisterAdminRoutes(adminRoutes)
}
