package middleware

import (
	"errors"
	"log/slog"

	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/gofiber/fiber/v3"
)

// Status maps an error to its HTTP status and client-facing message.
// Authorization and server failures use fixed messages; the full error is
// only logged.
func Status(err error) (int, string) {
	switch {
	case errors.Is(err, port.ErrUnauthenticated):
		return fiber.StatusUnauthorized, "unauthorized"
	case errors.Is(err, port.ErrForbidden):
		return fiber.StatusForbidden, "forbidden"
	case errors.Is(err, port.ErrNotFound):
		return fiber.StatusNotFound, "not found"
	case errors.Is(err, port.ErrValidation),
		errors.Is(err, port.ErrMissingTokens),
		errors.Is(err, port.ErrInvalidCredentials),
		errors.Is(err, port.ErrInvalidOrExpiredCode),
		errors.Is(err, port.ErrMalformedToken):
		return fiber.StatusBadRequest, err.Error()
	default:
		return fiber.StatusInternalServerError, "internal error"
	}
}

// Deny writes err as a JSON error response.
func Deny(c fiber.Ctx, err error) error {
	status, msg := Status(err)
	if status >= fiber.StatusInternalServerError {
		slog.Error("request failed", "method", c.Method(), "path", c.Path(), "error", err)
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
