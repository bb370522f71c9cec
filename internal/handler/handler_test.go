package handler_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/handler"
	"github.com/arturoeanton/coursesphere/internal/port/porttest"
	"github.com/arturoeanton/coursesphere/internal/service"
	"github.com/arturoeanton/coursesphere/internal/session"
	"github.com/arturoeanton/coursesphere/internal/token"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/require"
)

const (
	superID      = "5b1f7c52-0000-4000-8000-000000000001"
	adminID      = "5b1f7c52-0000-4000-8000-000000000002"
	otherAdminID = "5b1f7c52-0000-4000-8000-000000000003"
	instructorID = "5b1f7c52-0000-4000-8000-000000000004"
	studentID    = "5b1f7c52-0000-4000-8000-000000000005"

	ownCourseID   = "0c0a0000-0000-4000-8000-000000000001"
	otherCourseID = "0c0a0000-0000-4000-8000-000000000002"
	lessonID      = "1e550000-0000-4000-8000-000000000001"
)

type harness struct {
	app     *fiber.App
	idp     *porttest.Identity
	courses *porttest.Courses
	audit   *porttest.Audit
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	h := &harness{
		idp:   porttest.NewIdentity(),
		audit: &porttest.Audit{},
	}
	profiles := porttest.NewProfiles(
		domain.Profile{ID: superID, Role: domain.RoleSuperAdmin},
		domain.Profile{ID: adminID, Role: domain.RoleAdmin},
		domain.Profile{ID: otherAdminID, Role: domain.RoleAdmin},
		domain.Profile{ID: instructorID, Role: domain.RoleInstructor},
		domain.Profile{ID: studentID, Role: domain.RoleStudent},
	)
	h.courses = porttest.NewCourses(
		domain.Course{ID: ownCourseID, Title: "Go basics", InstructorID: adminID, Published: true},
		domain.Course{ID: otherCourseID, Title: "Draft", InstructorID: otherAdminID},
	)
	h.courses.PutLesson(domain.Lesson{ID: lessonID, CourseID: ownCourseID, Title: "Intro"})

	cookies := session.NewCookieStore(session.CookieOptions{})
	verifier, err := token.NewVerifier(porttest.Secret)
	require.NoError(t, err)
	sessions := service.NewSessionService(cookies, h.idp, verifier, profiles, 30*time.Second)
	authz := service.NewAuthorizer(sessions, h.courses)
	authService := service.NewAuthService(h.idp, sessions, porttest.NewGuard(), h.audit, service.AuthConfig{})
	catalog := service.NewCourseService(h.courses, authz, h.audit)

	h.app = fiber.New()
	api := h.app.Group("/api/v1")
	handler.NewAuthHandler(authService, sessions, authz).Register(api, nil)
	handler.NewCourseHandler(catalog, authz).Register(api)
	handler.NewAdminHandler(catalog, authz).Register(api)
	handler.NewAuditHandler(h.audit, authz).Register(api)
	return h
}

// sessionFor returns the cookies of a session for userID that expires in ttl.
func (h *harness) sessionFor(userID string, ttl time.Duration) []*http.Cookie {
	exp := time.Now().Add(ttl)
	rt := "rt-" + userID
	h.idp.IssueRefresh(rt, userID)
	return []*http.Cookie{
		{Name: session.AccessTokenCookie, Value: porttest.AccessToken(userID, exp)},
		{Name: session.RefreshTokenCookie, Value: rt},
		{Name: session.ExpiresAtCookie, Value: strconv.FormatInt(exp.Unix(), 10)},
	}
}

func (h *harness) do(t *testing.T, method, path string, body any, cookies []*http.Cookie) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, ok := body.(string)
		if !ok {
			b, err := json.Marshal(body)
			require.NoError(t, err)
			raw = string(b)
		}
		reader = bytes.NewBufferString(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func cookieMap(resp *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range resp.Cookies() {
		out[c.Name] = c
	}
	return out
}
