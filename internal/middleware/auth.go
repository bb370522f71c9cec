package middleware

import (
	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/gofiber/fiber/v3"
)

const profileKey = "profile"

// RequireRole resolves the caller's profile from the session cookies and
// rejects the request unless its role is one of allowed. The profile is
// stored in Fiber locals for the handler.
func RequireRole(authz *service.Authorizer, allowed ...domain.Role) fiber.Handler {
	return func(c fiber.Ctx) error {
		p, err := authz.RequireRole(c.Context(), c, allowed...)
		if err != nil {
			return Deny(c, err)
		}
		c.Locals(profileKey, p)
		return c.Next()
	}
}

// GetProfile extracts the authorized profile from Fiber locals.
func GetProfile(c fiber.Ctx) *domain.Profile {
	p, ok := c.Locals(profileKey).(*domain.Profile)
	if !ok {
		return nil
	}
	return p
}
