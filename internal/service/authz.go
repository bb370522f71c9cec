package service

import (
	"context"
	"errors"
	"slices"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/session"
)

// Authorizer enforces role membership and resource ownership.
type Authorizer struct {
	sessions *SessionService
	courses  port.CourseStore
}

// NewAuthorizer creates an authorizer.
func NewAuthorizer(sessions *SessionService, courses port.CourseStore) *Authorizer {
	return &Authorizer{sessions: sessions, courses: courses}
}

// RequireRole resolves the caller's profile and checks that its role is
// one of allowed. Membership is exact: no role implies another.
func (a *Authorizer) RequireRole(ctx context.Context, j session.Jar, allowed ...domain.Role) (*domain.Profile, error) {
	p, err := a.sessions.Profile(ctx, j)
	if err != nil {
		return nil, err
	}
	if !HasRole(p, allowed...) {
		return nil, port.ErrForbidden
	}
	return p, nil
}

// HasRole reports whether p holds one of the allowed roles. Unknown and
// empty roles never match.
func HasRole(p *domain.Profile, allowed ...domain.Role) bool {
	if p == nil || !p.Role.Known() {
		return false
	}
	return slices.Contains(allowed, p.Role)
}

// AssertOwnership checks that p may mutate a resource instructed by
// instructorID. super_admin always passes; admin must be the instructor.
func AssertOwnership(p *domain.Profile, instructorID string) error {
	if p == nil {
		return port.ErrForbidden
	}
	switch p.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleAdmin:
		if p.ID != "" && instructorID == p.ID {
			return nil
		}
	}
	return port.ErrForbidden
}

// AuthorizeCourseMutation runs the ownership check for a course.
func (a *Authorizer) AuthorizeCourseMutation(ctx context.Context, p *domain.Profile, courseID string) error {
	return a.authorize(p, func() (string, error) {
		return a.courses.CourseInstructor(ctx, courseID)
	})
}

// AuthorizeLessonMutation runs the ownership check for a lesson against
// its parent course.
func (a *Authorizer) AuthorizeLessonMutation(ctx context.Context, p *domain.Profile, lessonID string) error {
	return a.authorize(p, func() (string, error) {
		return a.courses.LessonInstructor(ctx, lessonID)
	})
}

func (a *Authorizer) authorize(p *domain.Profile, owner func() (string, error)) error {
	if p == nil {
		return port.ErrUnauthenticated
	}
	switch p.Role {
	case domain.RoleSuperAdmin:
		return nil
	case domain.RoleAdmin:
	default:
		return port.ErrForbidden
	}

	instructorID, err := owner()
	if errors.Is(err, port.ErrNotFound) {
		// Missing and foreign resources look the same to an admin.
		return port.ErrForbidden
	}
	if err != nil {
		return port.Upstream("resolve owner", err)
	}
	return AssertOwnership(p, instructorID)
}
