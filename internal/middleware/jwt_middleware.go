package middleware

import (
	"log/slog"
	"strings"

	"toko-checkout/internal/models"
	"toko-checkout/internal/services"

	"github.com/gofiber/fiber/v2"
)

const principalKey = "principal"

// AuthRequired is a Fiber middleware to check for a valid JWT token.
// The authenticated caller is stored as a models.Principal.
func AuthRequired(authService *services.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header is required",
				"code":    "UNAUTHORIZED",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Authorization header format must be 'Bearer <token>'",
				"code":    "UNAUTHORIZED",
			})
		}

		principal, err := authService.Authenticate(parts[1])
		if err != nil {
			slog.Debug("JWT validation failed", "err", err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"message": "Invalid or expired token",
				"code":    "UNAUTHORIZED",
			})
		}

		c.Locals(principalKey, principal)
		return c.Next()
	}
}

// AdminOnly rejects callers without the admin role. It must run after AuthRequired.
func AdminOnly() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !PrincipalFrom(c).IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"message": "admin role required",
				"code":    "FORBIDDEN",
			})
		}
		return c.Next()
	}
}

// PrincipalFrom returns the caller stored by AuthRequired, or the zero
// Principal for unauthenticated requests.
func PrincipalFrom(c *fiber.Ctx) models.Principal {
	principal, _ := c.Locals(principalKey).(models.Principal)
	return principal
}
