package handler

import (
	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/middleware"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/gofiber/fiber/v3"
)

// AdminHandler serves the administrative dashboard.
type AdminHandler struct {
	courses *service.CourseService
	authz   *service.Authorizer
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(courses *service.CourseService, authz *service.Authorizer) *AdminHandler {
	return &AdminHandler{courses: courses, authz: authz}
}

// Register sets up admin routes.
func (h *AdminHandler) Register(router fiber.Router) {
	admin := router.Group("/admin", middleware.RequireRole(h.authz, domain.RoleAdmin, domain.RoleSuperAdmin))
	admin.Get("/dashboard", h.Dashboard)
}

// Dashboard returns catalog counters scoped to the caller.
func (h *AdminHandler) Dashboard(c fiber.Ctx) error {
	p := middleware.GetProfile(c)
	stats, err := h.courses.Dashboard(c.Context(), p)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{
		"stats": stats,
		"role":  p.Role,
	})
}
