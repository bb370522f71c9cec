package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
)

// GoTrueProvider implements port.IdentityProvider against a GoTrue-compatible
// auth server (the hosted backend's /auth/v1 API).
type GoTrueProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	now        func() time.Time
}

// NewGoTrueProvider creates a provider client. baseURL is the project URL
// without the /auth/v1 suffix.
func NewGoTrueProvider(baseURL, apiKey string, timeout time.Duration) *GoTrueProvider {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &GoTrueProvider{
		baseURL:    strings.TrimRight(baseURL, "/") + "/auth/v1",
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		now:        time.Now,
	}
}

// sessionResponse is the token payload shared by the token, verify and
// signup endpoints.
type sessionResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	ExpiresIn    int64  `json:"expires_in"`
	User         *struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`

	// Present when signup returns a bare user awaiting confirmation.
	ID    string `json:"id"`
	Email string `json:"email"`
}

// errorResponse covers the error shapes GoTrue has used across versions.
type errorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
}

func (e errorResponse) text() string {
	for _, s := range []string{e.Msg, e.ErrorDescription, e.Message, e.Error, e.ErrorCode} {
		if s != "" {
			return s
		}
	}
	return "unknown error"
}

// apiError is a non-2xx response from the provider.
type apiError struct {
	Status  int
	Message string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("gotrue: %d: %s", e.Status, e.Message)
}

// SignIn exchanges email and password for a session.
func (g *GoTrueProvider) SignIn(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	var resp sessionResponse
	err := g.do(ctx, http.MethodPost, "/token?grant_type=password", "", map[string]string{
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, classify(err, port.ErrInvalidCredentials, http.StatusBadRequest, http.StatusUnauthorized)
	}
	return g.result(resp)
}

// SignUp registers a new account.
func (g *GoTrueProvider) SignUp(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	body := map[string]any{
		"email":    reg.Email,
		"password": reg.Password,
		"data": map[string]string{
			"first_name": reg.FirstName,
			"last_name":  reg.LastName,
		},
	}
	var resp sessionResponse
	if err := g.do(ctx, http.MethodPost, "/signup", "", body, &resp); err != nil {
		return nil, classify(err, port.ErrValidation, http.StatusBadRequest, http.StatusUnprocessableEntity)
	}
	if resp.AccessToken == "" {
		// Email confirmation pending: no session yet.
		return &domain.AuthResult{User: domain.User{ID: resp.ID, Email: resp.Email}}, nil
	}
	return g.result(resp)
}

// SignOut revokes the session behind accessToken.
func (g *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	if err := g.do(ctx, http.MethodPost, "/logout", accessToken, nil, nil); err != nil {
		return fmt.Errorf("%w: %v", port.ErrUpstream, err)
	}
	return nil
}

// ResetPasswordForEmail asks the provider to send a recovery email.
func (g *GoTrueProvider) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	path := "/recover"
	if redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(redirectTo)
	}
	if err := g.do(ctx, http.MethodPost, path, "", map[string]string{"email": email}, nil); err != nil {
		return fmt.Errorf("%w: %v", port.ErrUpstream, err)
	}
	return nil
}

// ExchangeCodeForSession verifies a recovery token hash and returns the
// session it opens. The provider consumes the code.
func (g *GoTrueProvider) ExchangeCodeForSession(ctx context.Context, code string) (*domain.AuthResult, error) {
	var resp sessionResponse
	err := g.do(ctx, http.MethodPost, "/verify", "", map[string]string{
		"type":       "recovery",
		"token_hash": code,
	}, &resp)
	if err != nil {
		return nil, classify(err, port.ErrInvalidOrExpiredCode,
			http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound, http.StatusGone)
	}
	return g.result(resp)
}

// UpdateUser sets a new password for the user behind accessToken.
func (g *GoTrueProvider) UpdateUser(ctx context.Context, accessToken, password string) error {
	err := g.do(ctx, http.MethodPut, "/user", accessToken, map[string]string{"password": password}, nil)
	if err == nil {
		return nil
	}
	var ae *apiError
	if errors.As(err, &ae) {
		switch ae.Status {
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%w: %s", port.ErrUnauthenticated, ae.Message)
		case http.StatusBadRequest, http.StatusUnprocessableEntity:
			// Weak password or password reuse.
			return fmt.Errorf("%w: %s", port.ErrValidation, ae.Message)
		}
	}
	return fmt.Errorf("%w: %v", port.ErrUpstream, err)
}

// VerifyAccessToken asks the provider who owns accessToken. It implements
// port.TokenVerifier for deployments without the shared JWT secret.
func (g *GoTrueProvider) VerifyAccessToken(ctx context.Context, accessToken string) (string, error) {
	var user struct {
		ID string `json:"id"`
	}
	err := g.do(ctx, http.MethodGet, "/user", accessToken, nil, &user)
	if err != nil {
		return "", classify(err, port.ErrUnauthenticated,
			http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound)
	}
	if user.ID == "" {
		return "", fmt.Errorf("%w: gotrue: user without id", port.ErrUnauthenticated)
	}
	return user.ID, nil
}

// RefreshSession trades a refresh token for a new session.
func (g *GoTrueProvider) RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error) {
	var resp sessionResponse
	err := g.do(ctx, http.MethodPost, "/token?grant_type=refresh_token", "", map[string]string{
		"refresh_token": refreshToken,
	}, &resp)
	if err != nil {
		return nil, classify(err, port.ErrInvalidCredentials, http.StatusBadRequest, http.StatusUnauthorized)
	}
	return g.result(resp)
}

// classify maps an apiError whose status is one of statuses to kind.
// Every other failure becomes port.ErrUpstream.
func classify(err error, kind error, statuses ...int) error {
	var ae *apiError
	if errors.As(err, &ae) && slices.Contains(statuses, ae.Status) {
		return fmt.Errorf("%w: %s", kind, ae.Message)
	}
	return fmt.Errorf("%w: %v", port.ErrUpstream, err)
}

func (g *GoTrueProvider) result(resp sessionResponse) (*domain.AuthResult, error) {
	if resp.AccessToken == "" || resp.RefreshToken == "" {
		return nil, fmt.Errorf("%w: gotrue: session missing tokens", port.ErrUpstream)
	}
	exp := resp.ExpiresAt
	if exp == 0 && resp.ExpiresIn > 0 {
		exp = g.now().Unix() + resp.ExpiresIn
	}
	out := &domain.AuthResult{
		TokenTriple: domain.TokenTriple{
			AccessToken:  resp.AccessToken,
			RefreshToken: resp.RefreshToken,
			ExpiresAt:    exp,
		},
	}
	if resp.User != nil {
		out.User = domain.User{ID: resp.User.ID, Email: resp.User.Email}
	}
	return out, nil
}

func (g *GoTrueProvider) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("gotrue: encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("gotrue: create request: %w", err)
	}
	req.Header.Set("apikey", g.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gotrue: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var e errorResponse
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil {
			msg = e.text()
		}
		return &apiError{Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("gotrue: decode response: %w", err)
	}
	return nil
}
