package handler

import (
	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/middleware"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

// CourseHandler handles course and lesson endpoints.
type CourseHandler struct {
	courses *service.CourseService
	authz   *service.Authorizer
}

// NewCourseHandler creates a new course handler.
func NewCourseHandler(courses *service.CourseService, authz *service.Authorizer) *CourseHandler {
	return &CourseHandler{courses: courses, authz: authz}
}

// Register sets up course and lesson routes. Reads need any signed-in role;
// writes need admin or super_admin plus ownership, checked in the service.
func (h *CourseHandler) Register(router fiber.Router) {
	member := middleware.RequireRole(h.authz, domain.AllRoles...)
	staff := middleware.RequireRole(h.authz, domain.RoleAdmin, domain.RoleSuperAdmin)

	courses := router.Group("/courses")
	courses.Get("/", member, h.List)
	courses.Post("/", staff, h.Create)
	courses.Get("/:id", member, h.Get)
	courses.Put("/:id", staff, h.Update)
	courses.Delete("/:id", staff, h.Delete)
	courses.Get("/:id/lessons", member, h.Lessons)
	courses.Post("/:id/lessons", staff, h.CreateLesson)

	lessons := router.Group("/lessons")
	lessons.Put("/:id", staff, h.UpdateLesson)
	lessons.Delete("/:id", staff, h.DeleteLesson)
}

// List returns the courses visible to the caller.
func (h *CourseHandler) List(c fiber.Ctx) error {
	list, err := h.courses.List(c.Context(), middleware.GetProfile(c))
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"courses": list, "count": len(list)})
}

// Get returns a single course.
func (h *CourseHandler) Get(c fiber.Ctx) error {
	id, err := pathID(c, "course")
	if err != nil {
		return middleware.Deny(c, err)
	}
	course, err := h.courses.Get(c.Context(), middleware.GetProfile(c), id)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(course)
}

// Create adds a course.
func (h *CourseHandler) Create(c fiber.Ctx) error {
	var in domain.CourseInput
	if err := c.Bind().JSON(&in); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	course, err := h.courses.Create(c.Context(), middleware.GetProfile(c), in)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(course)
}

// Update edits a course the caller owns.
func (h *CourseHandler) Update(c fiber.Ctx) error {
	id, err := pathID(c, "course")
	if err != nil {
		return middleware.Deny(c, err)
	}
	var in domain.CourseInput
	if err := c.Bind().JSON(&in); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	course, err := h.courses.Update(c.Context(), middleware.GetProfile(c), id, in)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(course)
}

// Delete removes a course the caller owns.
func (h *CourseHandler) Delete(c fiber.Ctx) error {
	id, err := pathID(c, "course")
	if err != nil {
		return middleware.Deny(c, err)
	}
	if err := h.courses.Delete(c.Context(), middleware.GetProfile(c), id); err != nil {
		return middleware.Deny(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// Lessons lists the lessons of a course.
func (h *CourseHandler) Lessons(c fiber.Ctx) error {
	id, err := pathID(c, "course")
	if err != nil {
		return middleware.Deny(c, err)
	}
	list, err := h.courses.Lessons(c.Context(), middleware.GetProfile(c), id)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(fiber.Map{"lessons": list, "count": len(list)})
}

// CreateLesson adds a lesson to a course the caller owns.
func (h *CourseHandler) CreateLesson(c fiber.Ctx) error {
	id, err := pathID(c, "course")
	if err != nil {
		return middleware.Deny(c, err)
	}
	var in domain.LessonInput
	if err := c.Bind().JSON(&in); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	lesson, err := h.courses.CreateLesson(c.Context(), middleware.GetProfile(c), id, in)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(lesson)
}

// UpdateLesson edits a lesson whose course the caller owns.
func (h *CourseHandler) UpdateLesson(c fiber.Ctx) error {
	id, err := pathID(c, "lesson")
	if err != nil {
		return middleware.Deny(c, err)
	}
	var in domain.LessonInput
	if err := c.Bind().JSON(&in); err != nil {
		return middleware.Deny(c, port.Validation("invalid request body"))
	}
	lesson, err := h.courses.UpdateLesson(c.Context(), middleware.GetProfile(c), id, in)
	if err != nil {
		return middleware.Deny(c, err)
	}
	return c.JSON(lesson)
}

// DeleteLesson removes a lesson whose course the caller owns.
func (h *CourseHandler) DeleteLesson(c fiber.Ctx) error {
	id, err := pathID(c, "lesson")
	if err != nil {
		return middleware.Deny(c, err)
	}
	if err := h.courses.DeleteLesson(c.Context(), middleware.GetProfile(c), id); err != nil {
		return middleware.Deny(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// pathID returns the :id route parameter in canonical UUID form.
func pathID(c fiber.Ctx, kind string) (string, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return "", port.Validation("invalid %s ID", kind)
	}
	return id.String(), nil
}
