// Package apperrors defines the error taxonomy shared by the checkout core.
// Services return these errors; handlers translate them into HTTP responses.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

// Code is a machine-readable error code.
type Code string

const (
	CodeValidation              Code = "VALIDATION_ERROR"
	CodeNotFound                Code = "NOT_FOUND"
	CodeInsufficientStock       Code = "INSUFFICIENT_STOCK"
	CodeUnauthorized            Code = "UNAUTHORIZED"
	CodeForbidden               Code = "FORBIDDEN"
	CodeInvalidStatusTransition Code = "INVALID_STATUS_TRANSITION"
	CodeVerificationFailed      Code = "VERIFICATION_FAILED"
	CodeGateway                 Code = "GATEWAY_ERROR"
	CodeConflict                Code = "CONFLICT"
	CodeInternal                Code = "INTERNAL"
)

// HTTPStatus maps a code to the status returned by the HTTP layer.
func (c Code) HTTPStatus() int {
	switch c {
	case CodeValidation, CodeVerificationFailed:
		return fiber.StatusBadRequest
	case CodeNotFound:
		return fiber.StatusNotFound
	case CodeInsufficientStock, CodeInvalidStatusTransition, CodeConflict:
		return fiber.StatusConflict
	case CodeUnauthorized:
		return fiber.StatusUnauthorized
	case CodeForbidden:
		return fiber.StatusForbidden
	case CodeGateway:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

// Retryable reports whether a caller may retry the same request unchanged.
func (c Code) Retryable() bool {
	return c == CodeGateway || c == CodeConflict
}

// Error is a domain error carrying a code and an optional cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause for error chain traversal.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// Sentinels for errors.Is checks. Only the code is compared.
var (
	ErrValidation              = &Error{Code: CodeValidation}
	ErrNotFound                = &Error{Code: CodeNotFound}
	ErrInsufficientStock       = &Error{Code: CodeInsufficientStock}
	ErrUnauthorized            = &Error{Code: CodeUnauthorized}
	ErrForbidden               = &Error{Code: CodeForbidden}
	ErrInvalidStatusTransition = &Error{Code: CodeInvalidStatusTransition}
	ErrVerificationFailed      = &Error{Code: CodeVerificationFailed}
	ErrGateway                 = &Error{Code: CodeGateway}
	ErrConflict                = &Error{Code: CodeConflict}
	ErrInternal                = &Error{Code: CodeInternal}
)

// New creates a domain error with a code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates a domain error that wraps an underlying cause.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Cause: cause}
}

func Validation(format string, args ...any) *Error {
	return New(CodeValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(CodeNotFound, format, args...)
}

func InsufficientStock(productID string, requested, available int) *Error {
	return New(CodeInsufficientStock, "insufficient stock for product %s (requested: %d, available: %d)", productID, requested, available)
}

func Forbidden(format string, args ...any) *Error {
	return New(CodeForbidden, format, args...)
}

func InvalidStatusTransition(from, to string) *Error {
	return New(CodeInvalidStatusTransition, "cannot change order status from %s to %s", from, to)
}

// CodeOf extracts the code of the first *Error in the chain.
// Unknown errors are reported as CodeInternal.
func CodeOf(err error) Code {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return CodeInternal
}

// PublicMessage returns the message safe to show to API callers.
// Gateway and internal failures never expose their cause.
func PublicMessage(err error) string {
	var appErr *Error
	if !errors.As(err, &appErr) {
		return "internal server error"
	}
	switch appErr.Code {
	case CodeGateway:
		return "payment provider is unavailable, please retry"
	case CodeInternal:
		return "internal server error"
	}
	return appErr.Message
}
