package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListCourses(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/courses", nil, h.sessionFor(studentID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["count"])

	resp = h.do(t, http.MethodGet, "/api/v1/courses", nil, h.sessionFor(adminID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decode(t, resp)["count"])

	resp = h.do(t, http.MethodGet, "/api/v1/courses", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGetCourse(t *testing.T) {
	h := newHarness(t)
	cookies := h.sessionFor(studentID, time.Hour)

	resp := h.do(t, http.MethodGet, "/api/v1/courses/"+ownCourseID, nil, cookies)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Go basics", decode(t, resp)["title"])

	resp = h.do(t, http.MethodGet, "/api/v1/courses/0c0a0000-0000-4000-8000-0000000000ff", nil, cookies)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/v1/courses/not-a-uuid", nil, cookies)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDraftCourseHiddenFromLearners(t *testing.T) {
	h := newHarness(t)
	student := h.sessionFor(studentID, time.Hour)

	for _, path := range []string{"/api/v1/courses/" + otherCourseID, "/api/v1/courses/" + otherCourseID + "/lessons"} {
		resp := h.do(t, http.MethodGet, path, nil, student)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		assert.Equal(t, "not found", decode(t, resp)["error"], path)
	}

	resp := h.do(t, http.MethodGet, "/api/v1/courses/"+otherCourseID, nil, h.sessionFor(otherAdminID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Draft", body["title"])
	assert.Equal(t, false, body["published"])

	resp = h.do(t, http.MethodGet, "/api/v1/courses/"+otherCourseID+"/lessons", nil, h.sessionFor(superID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 0, decode(t, resp)["count"])
}

func TestCourseMutationAuthorization(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		course string
		want   int
	}{
		{"owner", adminID, ownCourseID, http.StatusOK},
		{"other admin", otherAdminID, ownCourseID, http.StatusForbidden},
		{"instructor", instructorID, ownCourseID, http.StatusForbidden},
		{"student", studentID, ownCourseID, http.StatusForbidden},
		{"super admin", superID, otherCourseID, http.StatusOK},
		{"admin missing course", adminID, "0c0a0000-0000-4000-8000-0000000000ff", http.StatusForbidden},
		{"super admin missing course", superID, "0c0a0000-0000-4000-8000-0000000000ff", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.do(t, http.MethodPut, "/api/v1/courses/"+tt.course, map[string]any{"title": "Renamed"}, h.sessionFor(tt.userID, time.Hour))

			assert.Equal(t, tt.want, resp.StatusCode)
			if tt.want != http.StatusOK {
				assert.Zero(t, h.courses.Writes)
			}
		})
	}
}

func TestCreateCourse(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/courses", map[string]any{"title": "Rust", "instructor_id": otherAdminID}, h.sessionFor(adminID, time.Hour))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, adminID, decode(t, resp)["instructor_id"])

	resp = h.do(t, http.MethodPost, "/api/v1/courses", map[string]any{"title": "Mine"}, h.sessionFor(instructorID, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/courses", map[string]any{"title": ""}, h.sessionFor(adminID, time.Hour))
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDeleteCourse(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodDelete, "/api/v1/courses/"+otherCourseID, nil, h.sessionFor(adminID, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodDelete, "/api/v1/courses/"+ownCourseID, nil, h.sessionFor(adminID, time.Hour))
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestLessonRoutes(t *testing.T) {
	h := newHarness(t)
	admin := h.sessionFor(adminID, time.Hour)

	resp := h.do(t, http.MethodGet, "/api/v1/courses/"+ownCourseID+"/lessons", nil, h.sessionFor(studentID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 1, decode(t, resp)["count"])

	resp = h.do(t, http.MethodPost, "/api/v1/courses/"+ownCourseID+"/lessons", map[string]any{"title": "Types", "position": 1}, admin)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/courses/"+otherCourseID+"/lessons", map[string]any{"title": "Nope"}, admin)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/v1/lessons/"+lessonID, map[string]any{"title": "Welcome"}, h.sessionFor(otherAdminID, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodPut, "/api/v1/lessons/"+lessonID, map[string]any{"title": "Welcome"}, admin)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Welcome", decode(t, resp)["title"])

	resp = h.do(t, http.MethodDelete, "/api/v1/lessons/"+lessonID, nil, admin)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestAdminDashboard(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, h.sessionFor(studentID, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, h.sessionFor(adminID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode(t, resp)["stats"].(map[string]any)
	assert.EqualValues(t, 1, stats["courses"])

	resp = h.do(t, http.MethodGet, "/api/v1/admin/dashboard", nil, h.sessionFor(superID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats = decode(t, resp)["stats"].(map[string]any)
	assert.EqualValues(t, 2, stats["courses"])
}

func TestAuditLogsRequireSuperAdmin(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/audit/logs", nil, h.sessionFor(adminID, time.Hour))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = h.do(t, http.MethodGet, "/api/v1/audit/logs?limit=5", nil, h.sessionFor(superID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, decode(t, resp), "logs")
}
