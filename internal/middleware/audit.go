package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/gofiber/fiber/v3"
)

// AuditMiddleware logs every request for compliance purposes.
func AuditMiddleware(writer port.AuditWriter) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		// Capture request data BEFORE handler execution (Fiber reuses context objects)
		method := strings.Clone(c.Method())
		path := strings.Clone(c.Path())
		ip := strings.Clone(c.IP())
		userAgent := strings.Clone(c.Get("User-Agent"))

		err := c.Next()

		// Only role-gated routes resolve a profile.
		userID := "anonymous"
		if p := GetProfile(c); p != nil {
			userID = p.ID
		}

		statusCode := c.Response().StatusCode()
		details := map[string]interface{}{
			"method":      method,
			"path":        path,
			"status":      statusCode,
			"duration_ms": time.Since(start).Milliseconds(),
		}
		detailsJSON, _ := json.Marshal(details)

		entry := domain.AuditLog{
			UserID:     userID,
			Action:     domain.AuditActionRequest,
			Resource:   "api",
			ResourceID: path,
			Details:    string(detailsJSON),
			IP:         ip,
			UserAgent:  userAgent,
		}

		// Write asynchronously; every value above is a copy.
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if writeErr := writer.WriteAudit(ctx, entry); writeErr != nil {
				slog.Error("failed to write audit log", "error", writeErr)
			}
		}()

		return err
	}
}
