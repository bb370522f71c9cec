package handler_test

import (
	"encoding/base64"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/arturoeanton/coursesphere/internal/port/porttest"
	"github.com/arturoeanton/coursesphere/internal/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyUserSetsSessionCookies(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	access := porttest.AccessToken(studentID, exp)

	tests := map[string]any{
		"numeric expiry": exp.Unix(),
		"string expiry":  strconv.FormatInt(exp.Unix(), 10),
	}

	for name, expiresAt := range tests {
		t.Run(name, func(t *testing.T) {
			h := newHarness(t)

			resp := h.do(t, http.MethodPost, "/api/v1/auth/verify-user", map[string]any{
				"access_token":  access,
				"refresh_token": "rt",
				"expires_at":    expiresAt,
			}, nil)

			require.Equal(t, http.StatusOK, resp.StatusCode)
			body := decode(t, resp)
			assert.Equal(t, true, body["success"])
			assert.Equal(t, studentID, body["tokenData"].(map[string]any)["user_id"])

			jar := cookieMap(resp)
			require.Len(t, jar, 3)
			assert.Equal(t, access, jar[session.AccessTokenCookie].Value)
			assert.Equal(t, "rt", jar[session.RefreshTokenCookie].Value)
			assert.Equal(t, strconv.FormatInt(exp.Unix(), 10), jar[session.ExpiresAtCookie].Value)
			for _, c := range jar {
				assert.True(t, c.HttpOnly, c.Name)
				assert.Equal(t, http.SameSiteLaxMode, c.SameSite, c.Name)
			}
		})
	}
}

func TestVerifyUserRejectsIncompleteTriple(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/auth/verify-user", map[string]any{
		"access_token": porttest.AccessToken(studentID, time.Now().Add(time.Hour)),
		"expires_at":   time.Now().Add(time.Hour).Unix(),
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "missing tokens", decode(t, resp)["error"])
	assert.Empty(t, resp.Cookies())
}

func TestVerifyUserRejectsMalformedToken(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/auth/verify-user", map[string]any{
		"access_token":  "not-a-jwt",
		"refresh_token": "rt",
		"expires_at":    time.Now().Add(time.Hour).Unix(),
	}, nil)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Empty(t, resp.Cookies())
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.idp.AddUser(studentID, "ada@example.com", "s3cret!")

	resp := h.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "s3cret!",
	}, nil)

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.NotZero(t, body["expires_at"])
	assert.Equal(t, studentID, body["user"].(map[string]any)["id"])
	assert.Empty(t, resp.Cookies(), "login leaves committing to verify-user")
}

func TestLoginErrors(t *testing.T) {
	h := newHarness(t)
	h.idp.AddUser(studentID, "ada@example.com", "s3cret!")

	resp := h.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = h.do(t, http.MethodPost, "/api/v1/auth/login", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRegister(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "new@example.com", "password": "123456", "first_name": "Grace",
	}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, body, "session")

	resp = h.do(t, http.MethodPost, "/api/v1/auth/register", map[string]string{
		"email": "short@example.com", "password": "12345",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestForgotPasswordIsIndistinguishable(t *testing.T) {
	h := newHarness(t)
	h.idp.AddUser(studentID, "ada@example.com", "s3cret!")

	known := h.do(t, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "ada@example.com"}, nil)
	unknown := h.do(t, http.MethodPost, "/api/v1/auth/forgot-password", map[string]string{"email": "ghost@example.com"}, nil)

	assert.Equal(t, known.StatusCode, unknown.StatusCode)
	knownBody, err := io.ReadAll(known.Body)
	require.NoError(t, err)
	unknownBody, err := io.ReadAll(unknown.Body)
	require.NoError(t, err)
	assert.Equal(t, string(knownBody), string(unknownBody))
	assert.JSONEq(t, `{"success":true}`, string(knownBody))
}

func TestExchangeResetCode(t *testing.T) {
	h := newHarness(t)
	h.idp.IssueCode("code-1", studentID)

	first := h.do(t, http.MethodPost, "/api/v1/auth/exchange-reset-code", map[string]string{"code": "code-1"}, nil)
	require.Equal(t, http.StatusOK, first.StatusCode)
	assert.Len(t, cookieMap(first), 3)

	replay := h.do(t, http.MethodPost, "/api/v1/auth/exchange-reset-code", map[string]string{"code": "code-1"}, nil)
	assert.Equal(t, http.StatusBadRequest, replay.StatusCode)
	assert.Empty(t, replay.Cookies())
}

func TestResetPassword(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"password": "n3w-password"}, h.sessionFor(studentID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "n3w-password", h.idp.Passwords[studentID])

	resp = h.do(t, http.MethodPost, "/api/v1/auth/reset-password", map[string]string{"password": "n3w-password"}, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutClearsCookies(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodPost, "/api/v1/auth/logout", nil, h.sessionFor(studentID, time.Hour))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	jar := cookieMap(resp)
	require.Len(t, jar, 3)
	for _, c := range jar {
		assert.Empty(t, c.Value, c.Name)
		assert.True(t, c.MaxAge < 0 || c.Expires.Before(time.Now()), c.Name)
	}
	assert.Equal(t, 1, h.idp.CallCount("SignOut"))
}

func TestMe(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "unauthorized", decode(t, resp)["error"])

	resp = h.do(t, http.MethodGet, "/api/v1/auth/me", nil, h.sessionFor(instructorID, time.Hour))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, instructorID, body["id"])
	assert.Equal(t, "instructor", body["role"])
}

func TestForgedSessionIsRejected(t *testing.T) {
	h := newHarness(t)
	enc := base64.RawURLEncoding.EncodeToString
	forged := enc([]byte(`{"alg":"none","typ":"JWT"}`)) + "." + enc([]byte(`{"sub":"`+superID+`"}`)) + "."
	cookies := h.sessionFor(studentID, time.Hour)
	cookies[0].Value = forged

	for _, path := range []string{"/api/v1/auth/me", "/api/v1/admin/dashboard", "/api/v1/audit/logs"} {
		resp := h.do(t, http.MethodGet, path, nil, cookies)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
		assert.Equal(t, "unauthorized", decode(t, resp)["error"], path)
	}
}

func TestMeRefreshesExpiredSession(t *testing.T) {
	h := newHarness(t)

	resp := h.do(t, http.MethodGet, "/api/v1/auth/me", nil, h.sessionFor(studentID, -time.Minute))

	require.Equal(t, http.StatusOK, resp.StatusCode)
	jar := cookieMap(resp)
	require.Len(t, jar, 3)
	assert.NotEqual(t, "rt-"+studentID, jar[session.RefreshTokenCookie].Value)
	assert.Equal(t, 1, h.idp.CallCount("RefreshSession"))
}
