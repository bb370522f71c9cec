package service

import (
	"testing"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port/porttest"
	"github.com/arturoeanton/coursesphere/internal/session"
	"github.com/arturoeanton/coursesphere/internal/token"
)

const (
	superID      = "u-super"
	adminID      = "u-admin"
	otherAdminID = "u-admin-2"
	instructorID = "u-instructor"
	studentID    = "u-student"
	strangerID   = "u-stranger" // has a session but no profile row
	oddRoleID    = "u-odd"
)

type fixture struct {
	now      time.Time
	idp      *porttest.Identity
	profiles *porttest.Profiles
	courses  *porttest.Courses
	audit    *porttest.Audit
	guard    *porttest.Guard
	cookies  *session.CookieStore
	sessions *SessionService
	authz    *Authorizer
	auth     *AuthService
	catalog  *CourseService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now:     time.Unix(1_700_000_000, 0),
		idp:     porttest.NewIdentity(),
		audit:   &porttest.Audit{},
		guard:   porttest.NewGuard(),
		cookies: session.NewCookieStore(session.CookieOptions{}),
	}
	f.profiles = porttest.NewProfiles(
		domain.Profile{ID: superID, Role: domain.RoleSuperAdmin},
		domain.Profile{ID: adminID, Role: domain.RoleAdmin},
		domain.Profile{ID: otherAdminID, Role: domain.RoleAdmin},
		domain.Profile{ID: instructorID, Role: domain.RoleInstructor},
		domain.Profile{ID: studentID, Role: domain.RoleStudent},
		domain.Profile{ID: oddRoleID, Role: domain.Role("teacher")},
	)
	f.courses = porttest.NewCourses(
		domain.Course{ID: "c-admin", Title: "Go basics", InstructorID: adminID, Published: true},
		domain.Course{ID: "c-other", Title: "SQL", InstructorID: otherAdminID},
	)
	f.courses.PutLesson(domain.Lesson{ID: "l-admin", CourseID: "c-admin", Title: "Intro"})
	f.courses.PutLesson(domain.Lesson{ID: "l-other", CourseID: "c-other", Title: "Joins"})

	f.idp.Now = func() time.Time { return f.now }
	verifier, err := token.NewVerifier(porttest.Secret, token.WithClock(func() time.Time { return f.now }))
	if err != nil {
		t.Fatalf("verifier: %v", err)
	}
	f.sessions = NewSessionService(f.cookies, f.idp, verifier, f.profiles, 30*time.Second)
	f.sessions.now = func() time.Time { return f.now }
	f.authz = NewAuthorizer(f.sessions, f.courses)
	f.auth = NewAuthService(f.idp, f.sessions, f.guard, f.audit, AuthConfig{ResetRedirectURL: "https://app.example.com/reset"})
	f.catalog = NewCourseService(f.courses, f.authz, f.audit)
	return f
}

// signedIn returns a jar holding a session for userID that expires in ttl.
// The session's refresh token is known to the identity provider.
func (f *fixture) signedIn(userID string, ttl time.Duration) *porttest.Jar {
	exp := f.now.Add(ttl)
	rt := "rt-" + userID
	f.idp.IssueRefresh(rt, userID)

	jar := porttest.NewJar()
	f.cookies.Commit(jar, domain.Session{
		AccessToken:  porttest.AccessToken(userID, exp),
		RefreshToken: rt,
		ExpiresAt:    exp.Unix(),
		UserID:       userID,
	})
	jar.Written = nil
	return jar
}

func (f *fixture) profile(t *testing.T, userID string) *domain.Profile {
	t.Helper()
	p, err := f.profiles.GetProfile(t.Context(), userID)
	if err != nil {
		t.Fatalf("profile %s: %v", userID, err)
	}
	return p
}
