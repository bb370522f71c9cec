package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/session"
)

// DefaultMinPasswordLength is the shortest password accepted on register
// and reset.
const DefaultMinPasswordLength = 6

// AuthConfig tunes the credential flows.
type AuthConfig struct {
	ResetRedirectURL  string
	MinPasswordLength int
}

// AuthService runs the credential exchange flows against the identity
// provider.
type AuthService struct {
	provider port.IdentityProvider
	sessions *SessionService
	guard    port.CodeGuard
	audit    port.AuditWriter
	cfg      AuthConfig
}

// NewAuthService creates the credential flow service. guard and audit may
// be nil.
func NewAuthService(provider port.IdentityProvider, sessions *SessionService, guard port.CodeGuard, audit port.AuditWriter, cfg AuthConfig) *AuthService {
	if cfg.MinPasswordLength <= 0 {
		cfg.MinPasswordLength = DefaultMinPasswordLength
	}
	return &AuthService{
		provider: provider,
		sessions: sessions,
		guard:    guard,
		audit:    audit,
		cfg:      cfg,
	}
}

// Login exchanges credentials for a token triple. The caller commits the
// triple through the verify flow. Password length is left to the provider.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.AuthResult, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, port.Validation("email is required")
	}
	if password == "" {
		return nil, port.Validation("password is required")
	}

	res, err := s.provider.SignIn(ctx, email, password)
	if err != nil {
		if errors.Is(err, port.ErrInvalidCredentials) {
			return nil, err
		}
		return nil, port.Upstream("sign in", err)
	}

	s.record(ctx, res.User.ID, domain.AuditActionLogin)
	slog.Info("user signed in", "user_id", res.User.ID)
	return res, nil
}

// Register creates an account with the provider.
func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error) {
	reg.Email = normalizeEmail(reg.Email)
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if reg.Email == "" {
		return nil, port.Validation("email is required")
	}
	if _, err := mail.ParseAddress(reg.Email); err != nil {
		return nil, port.Validation("email is invalid")
	}
	if err := s.checkPassword(reg.Password); err != nil {
		return nil, err
	}

	res, err := s.provider.SignUp(ctx, reg)
	if err != nil {
		if errors.Is(err, port.ErrValidation) {
			return nil, err
		}
		return nil, port.Upstream("sign up", err)
	}
	slog.Info("user registered", "user_id", res.User.ID)
	return res, nil
}

// Logout signs out with the provider and clears the local session. The
// local session is cleared even when the provider call fails.
func (s *AuthService) Logout(ctx context.Context, j session.Jar) {
	sess, ok := s.sessions.Peek(j)
	if ok {
		if err := s.provider.SignOut(ctx, sess.AccessToken); err != nil {
			slog.Warn("provider sign out failed, clearing local session anyway", "user_id", sess.UserID, "error", err)
		}
		s.record(ctx, sess.UserID, domain.AuditActionLogout)
	}
	s.sessions.End(j)
}

// ForgotPassword asks the provider to email a reset code. The outcome is
// the same whether or not the address is registered.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return port.Validation("email is required")
	}
	if err := s.provider.ResetPasswordForEmail(ctx, email, s.cfg.ResetRedirectURL); err != nil {
		slog.Warn("password reset request not delivered", "error", err)
	}
	return nil
}

// ExchangeResetCode trades a one-time reset code for a session and commits
// it. A code is accepted at most once.
func (s *AuthService) ExchangeResetCode(ctx context.Context, j session.Jar, code string) (*VerifyResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, port.Validation("code is required")
	}

	if s.guard != nil {
		claimed, err := s.guard.Claim(ctx, code)
		if err != nil {
			return nil, port.Upstream("claim reset code", err)
		}
		if !claimed {
			return nil, port.ErrInvalidOrExpiredCode
		}
	}

	res, err := s.provider.ExchangeCodeForSession(ctx, code)
	if err != nil {
		if errors.Is(err, port.ErrInvalidOrExpiredCode) {
			return nil, err
		}
		s.release(ctx, code)
		return nil, port.Upstream("exchange reset code", err)
	}

	out, err := s.sessions.commit(j, res.TokenTriple)
	if err != nil {
		return nil, fmt.Errorf("commit reset session: %w", err)
	}
	return out, nil
}

// ResetPassword sets a new password for the signed-in user.
func (s *AuthService) ResetPassword(ctx context.Context, j session.Jar, password string) error {
	if err := s.checkPassword(password); err != nil {
		return err
	}
	sess, err := s.sessions.Current(ctx, j)
	if err != nil {
		return err
	}
	if err := s.provider.UpdateUser(ctx, sess.AccessToken, password); err != nil {
		if errors.Is(err, port.ErrUnauthenticated) {
			return port.ErrUnauthenticated
		}
		if errors.Is(err, port.ErrValidation) {
			return err
		}
		return port.Upstream("update password", err)
	}
	s.record(ctx, sess.UserID, domain.AuditActionPasswordReset)
	return nil
}

func (s *AuthService) checkPassword(password string) error {
	if strings.TrimSpace(password) == "" {
		return port.Validation("password is required")
	}
	if len(password) < s.cfg.MinPasswordLength {
		return port.Validation("password must be at least %d characters", s.cfg.MinPasswordLength)
	}
	return nil
}

func (s *AuthService) release(ctx context.Context, code string) {
	if s.guard == nil {
		return
	}
	if err := s.guard.Release(ctx, code); err != nil {
		slog.Error("release reset code claim failed", "error", err)
	}
}

func (s *AuthService) record(ctx context.Context, userID, action string) {
	writeAudit(ctx, s.audit, domain.AuditLog{UserID: userID, Action: action, Resource: "auth"})
}

func writeAudit(ctx context.Context, w port.AuditWriter, entry domain.AuditLog) {
	if w == nil {
		return
	}
	if entry.Details == "" {
		entry.Details = "{}"
	}
	if err := w.WriteAudit(ctx, entry); err != nil {
		slog.Error("failed to write audit log", "action", entry.Action, "error", err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
