package service

import (
	"context"
	"errors"
	"strings"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
)

// CourseService serves the course and lesson records. Every mutation runs
// the ownership check before touching the store.
type CourseService struct {
	courses port.CourseStore
	authz   *Authorizer
	audit   port.AuditWriter
}

// NewCourseService creates a course service. audit may be nil.
func NewCourseService(courses port.CourseStore, authz *Authorizer, audit port.AuditWriter) *CourseService {
	return &CourseService{courses: courses, authz: authz, audit: audit}
}

// List returns the catalog. Only admins see unpublished courses.
func (s *CourseService) List(ctx context.Context, p *domain.Profile) ([]domain.Course, error) {
	courses, err := s.courses.ListCourses(ctx, !seesDrafts(p))
	if err != nil {
		return nil, storeErr("list courses", err)
	}
	return courses, nil
}

// Get returns one course. An unpublished course is not found for callers
// that cannot see drafts.
func (s *CourseService) Get(ctx context.Context, p *domain.Profile, id string) (*domain.Course, error) {
	c, err := s.courses.GetCourse(ctx, id)
	if err != nil {
		return nil, storeErr("get course", err)
	}
	if !c.Published && !seesDrafts(p) {
		return nil, port.ErrNotFound
	}
	return c, nil
}

// Create inserts a course. An admin always becomes its instructor; a
// super_admin may name another instructor.
func (s *CourseService) Create(ctx context.Context, p *domain.Profile, in domain.CourseInput) (*domain.Course, error) {
	if !HasRole(p, domain.RoleAdmin, domain.RoleSuperAdmin) {
		return nil, port.ErrForbidden
	}
	if err := validateCourse(&in); err != nil {
		return nil, err
	}
	if p.Role == domain.RoleAdmin || in.InstructorID == "" {
		in.InstructorID = p.ID
	}

	c, err := s.courses.CreateCourse(ctx, in)
	if err != nil {
		return nil, storeErr("create course", err)
	}
	s.record(ctx, p, domain.AuditActionCourseWrite, "course", c.ID)
	return c, nil
}

// Update rewrites a course the caller owns.
func (s *CourseService) Update(ctx context.Context, p *domain.Profile, id string, in domain.CourseInput) (*domain.Course, error) {
	if err := validateCourse(&in); err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeCourseMutation(ctx, p, id); err != nil {
		return nil, err
	}
	if p.Role != domain.RoleSuperAdmin {
		in.InstructorID = ""
	}

	c, err := s.courses.UpdateCourse(ctx, id, in)
	if err != nil {
		return nil, storeErr("update course", err)
	}
	s.record(ctx, p, domain.AuditActionCourseWrite, "course", id)
	return c, nil
}

// Delete removes a course the caller owns.
func (s *CourseService) Delete(ctx context.Context, p *domain.Profile, id string) error {
	if err := s.authz.AuthorizeCourseMutation(ctx, p, id); err != nil {
		return err
	}
	if err := s.courses.DeleteCourse(ctx, id); err != nil {
		return storeErr("delete course", err)
	}
	s.record(ctx, p, domain.AuditActionCourseWrite, "course", id)
	return nil
}

// Lessons lists the lessons of a course in order, under the same
// visibility rule as Get.
func (s *CourseService) Lessons(ctx context.Context, p *domain.Profile, courseID string) ([]domain.Lesson, error) {
	if _, err := s.Get(ctx, p, courseID); err != nil {
		return nil, err
	}
	lessons, err := s.courses.ListLessons(ctx, courseID)
	if err != nil {
		return nil, storeErr("list lessons", err)
	}
	return lessons, nil
}

// CreateLesson adds a lesson to a course the caller owns.
func (s *CourseService) CreateLesson(ctx context.Context, p *domain.Profile, courseID string, in domain.LessonInput) (*domain.Lesson, error) {
	if err := validateLesson(&in); err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeCourseMutation(ctx, p, courseID); err != nil {
		return nil, err
	}
	l, err := s.courses.CreateLesson(ctx, courseID, in)
	if err != nil {
		return nil, storeErr("create lesson", err)
	}
	s.record(ctx, p, domain.AuditActionLessonWrite, "lesson", l.ID)
	return l, nil
}

// UpdateLesson rewrites a lesson whose course the caller owns.
func (s *CourseService) UpdateLesson(ctx context.Context, p *domain.Profile, id string, in domain.LessonInput) (*domain.Lesson, error) {
	if err := validateLesson(&in); err != nil {
		return nil, err
	}
	if err := s.authz.AuthorizeLessonMutation(ctx, p, id); err != nil {
		return nil, err
	}
	l, err := s.courses.UpdateLesson(ctx, id, in)
	if err != nil {
		return nil, storeErr("update lesson", err)
	}
	s.record(ctx, p, domain.AuditActionLessonWrite, "lesson", id)
	return l, nil
}

// DeleteLesson removes a lesson whose course the caller owns.
func (s *CourseService) DeleteLesson(ctx context.Context, p *domain.Profile, id string) error {
	if err := s.authz.AuthorizeLessonMutation(ctx, p, id); err != nil {
		return err
	}
	if err := s.courses.DeleteLesson(ctx, id); err != nil {
		return storeErr("delete lesson", err)
	}
	s.record(ctx, p, domain.AuditActionLessonWrite, "lesson", id)
	return nil
}

// Dashboard aggregates the catalog: everything for a super_admin, the
// caller's own courses for an admin.
func (s *CourseService) Dashboard(ctx context.Context, p *domain.Profile) (*domain.DashboardStats, error) {
	var scope string
	switch {
	case HasRole(p, domain.RoleSuperAdmin):
	case HasRole(p, domain.RoleAdmin):
		scope = p.ID
	default:
		return nil, port.ErrForbidden
	}
	st, err := s.courses.DashboardStats(ctx, scope)
	if err != nil {
		return nil, storeErr("dashboard stats", err)
	}
	return st, nil
}

func (s *CourseService) record(ctx context.Context, p *domain.Profile, action, resource, id string) {
	writeAudit(ctx, s.audit, domain.AuditLog{UserID: p.ID, Action: action, Resource: resource, ResourceID: id})
}

func seesDrafts(p *domain.Profile) bool {
	return HasRole(p, domain.RoleAdmin, domain.RoleSuperAdmin)
}

func validateCourse(in *domain.CourseInput) error {
	in.Title = strings.TrimSpace(in.Title)
	in.InstructorID = strings.TrimSpace(in.InstructorID)
	if in.Title == "" {
		return port.Validation("title is required")
	}
	return nil
}

func validateLesson(in *domain.LessonInput) error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return port.Validation("title is required")
	}
	if in.Position < 0 {
		return port.Validation("position must not be negative")
	}
	return nil
}

// storeErr keeps ErrNotFound visible and hides every other store failure
// behind ErrUpstream.
func storeErr(op string, err error) error {
	if errors.Is(err, port.ErrNotFound) {
		return port.ErrNotFound
	}
	return port.Upstream(op, err)
}
