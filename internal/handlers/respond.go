package handlers

import (
	"errors"
	"fmt"
	"log/slog"

	"toko-checkout/internal/apperrors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
)

var validate = validator.New()

// respondError renders err as {"message", "code"} with the status mapped
// from its code. Causes of gateway and internal errors are only logged.
func respondError(c *fiber.Ctx, err error) error {
	code := apperrors.CodeOf(err)
	status := code.HTTPStatus()
	if status >= fiber.StatusInternalServerError {
		slog.Error("Request failed", "method", c.Method(), "path", c.Path(), "code", code, "err", err)
	} else {
		slog.Debug("Request rejected", "method", c.Method(), "path", c.Path(), "code", code, "err", err)
	}
	return c.Status(status).JSON(fiber.Map{
		"message": apperrors.PublicMessage(err),
		"code":    string(code),
	})
}

// parseBody decodes the JSON body into out and validates it. On failure the
// error response has already been written and handled is true.
func parseBody(c *fiber.Ctx, out interface{}) (handled bool, err error) {
	if err := c.BodyParser(out); err != nil {
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"code":    string(apperrors.CodeValidation),
		})
	}
	if err := validate.Struct(out); err != nil {
		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			return true, respondError(c, apperrors.Validation("%v", err))
		}
		errorMessages := make(map[string]string)
		for _, e := range validationErrors {
			errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
		}
		return true, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"code":    string(apperrors.CodeValidation),
			"errors":  errorMessages,
		})
	}
	return false, nil
}
