package handler

import (
	"encoding/json"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/middleware"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AuthHandler handles the session and credential endpoints.
type AuthHandler struct {
	authService *service.AuthService
	sessions    *service.SessionService
	authz       *service.Authorizer
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService *service.AuthService, sessions *service.SessionService, authz *service.Authorizer) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, authz: authz}
}

// Register sets up auth routes. throttle guards the credential endpoints
// and may be nil.
func (h *AuthHandler) Register(router fiber.Router, throttle fiber.Handler) {
	if throttle == nil {
		throttle = func(c fiber.Ctx) error { return c.Next() }
	}
	auth := router.Group("/auth")
	auth.Post("/login", throttle, h.Login)
	auth.Post("/register", throttle, h.SignUp)
	auth.Post("/logout", h.Logout)
	auth.Post("/verify-user", h.VerifyUser)
	auth.Post("/forgot-password", throttle, h.ForgotPassword)
	auth.Post("/exchange-reset-code", throttle, h.ExchangeResetCode)
	auth.Post("/reset-password", h.ResetPassword)
	auth.Get("/me", middleware.RequireRole(h.authz, domain.AllRoles...), h.Me)
}

// Login exchanges email and password for a token triple.
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}

	res, err := h.authService.Login(c.Context(), body.Email, body.Password)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(res)
}

// SignUp registers a new account.
func (h *AuthHandler) SignUp(c fiber.Ctx) error {
	var body domain.Registration
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}

	res, err := h.authService.Register(c.Context(), body)
	if err != nil {
		return middleware.Deny(c, err)
	}

	out := fiber.Map{"success": true, "user": res.User}
	if res.AccessToken != "" {
		out["session"] = res.TokenTriple
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Logout signs out and always clears the session cookies.
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	h.authService.Logout(c.Context(), c)
	return c.JSON(fiber.Map{"success": true})
}

// VerifyUser commits a freshly issued token triple as the session.
func (h *AuthHandler) VerifyUser(c fiber.Ctx) error {
	var body struct {
		AccessToken  string          `json:"access_token"`
		RefreshToken string          `json:"refresh_token"`
		ExpiresAt    json.RawMessage `json:"expires_at"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.ErrMissingTokens)
	}

	res, err := h.sessions.Verify(c, domain.RawTokens{
		AccessToken:  body.AccessToken,
		RefreshToken: body.RefreshToken,
		ExpiresAt:    string(body.ExpiresAt),
	})
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"tokenData": res, "success": true})
}

// ForgotPassword requests a reset email. The response does not depend on
// whether the address is registered.
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var body struct {
		Email string `json:"email"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	if err := h.authService.ForgotPassword(c.Context(), body.Email); err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ExchangeResetCode trades a one-time reset code for a session.
func (h *AuthHandler) ExchangeResetCode(c fiber.Ctx) error {
	var body struct {
		Code string `json:"code"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	if _, err := h.authService.ExchangeResetCode(c.Context(), c, body.Code); err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// ResetPassword sets a new password for the signed-in user.
func (h *AuthHandler) ResetPassword(c fiber.Ctx) error {
	var body struct {
		Password string `json:"password"`
	}
	if err := c.Bind().JSON(&body); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	if err := h.authService.ResetPassword(c.Context(), c, body.Password); err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the caller's profile.
func (h *AuthHandler) Me(c fiber.Ctx) error {
	return c.JSON(middleware.GetProfile(c))
}
