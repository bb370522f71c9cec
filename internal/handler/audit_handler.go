package handler

import (
	"strconv"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/middleware"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/gofiber/fiber/v3"
)

const maxAuditLimit = 500

// AuditHandler handles audit log endpoints.
type AuditHandler struct {
	reader port.AuditReader
	authz  *service.Authorizer
}

// NewAuditHandler creates a new audit handler.
func NewAuditHandler(reader port.AuditReader, authz *service.Authorizer) *AuditHandler {
	return &AuditHandler{reader: reader, authz: authz}
}

// Register sets up audit routes. Only super admins may read the trail.
func (h *AuditHandler) Register(router fiber.Router) {
	audit := router.Group("/audit")
	audit.Get("/logs", middleware.RequireRole(h.authz, domain.RoleSuperAdmin), h.ListLogs)
}

// ListLogs returns audit logs with optional filtering.
func (h *AuditHandler) ListLogs(c fiber.Ctx) error {
	limit, err := strconv.Atoi(c.Query("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	limit = min(limit, maxAuditLimit)
	action := c.Query("action", "")

	logs, err := h.reader.ListAuditLogs(c.Context(), limit, action)
	if err != nil {
		return middleware.Deny(c, port.Upstream("list audit logs", err))
	}

	return c.JSON(fiber.Map{
		"logs":  logs,
		"count": len(logs),
	})
}
