package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/arturoeanton/coursesphere/internal/session"
	"github.com/arturoeanton/coursesphere/internal/token"
)

// VerifyResult is returned once a token triple has been committed.
type VerifyResult struct {
	UserID    string `json:"user_id"`
	Committed bool   `json:"committed"`
}

// SessionService establishes, refreshes and resolves client sessions.
// Verify is the only path that writes to the session store.
type SessionService struct {
	store    session.Store
	provider port.IdentityProvider
	verifier port.TokenVerifier
	profiles port.ProfileStore
	leeway   time.Duration
	now      func() time.Time
}

// NewSessionService creates a session service. verifier authenticates the
// access token before any profile is served. leeway treats tokens that
// expire within that window as already expired.
func NewSessionService(store session.Store, provider port.IdentityProvider, verifier port.TokenVerifier, profiles port.ProfileStore, leeway time.Duration) *SessionService {
	return &SessionService{
		store:    store,
		provider: provider,
		verifier: verifier,
		profiles: profiles,
		leeway:   leeway,
		now:      time.Now,
	}
}

// Verify validates a client-supplied token triple and commits it.
func (s *SessionService) Verify(j session.Jar, raw domain.RawTokens) (*VerifyResult, error) {
	access := strings.TrimSpace(raw.AccessToken)
	refresh := strings.TrimSpace(raw.RefreshToken)
	rawExp := strings.Trim(strings.TrimSpace(raw.ExpiresAt), `"`)
	if access == "" || refresh == "" || rawExp == "" {
		return nil, port.ErrMissingTokens
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: expires_at is not an integer", port.ErrMissingTokens)
	}
	return s.commit(j, domain.TokenTriple{AccessToken: access, RefreshToken: refresh, ExpiresAt: exp})
}

// commit derives the subject and writes the session. Nothing is written
// when the access token cannot be decoded.
func (s *SessionService) commit(j session.Jar, t domain.TokenTriple) (*VerifyResult, error) {
	if t.AccessToken == "" || t.RefreshToken == "" || t.ExpiresAt == 0 {
		return nil, port.ErrMissingTokens
	}
	uid, err := token.DecodeSubject(t.AccessToken)
	if err != nil {
		return nil, err
	}
	s.store.Commit(j, domain.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		UserID:       uid,
	})
	return &VerifyResult{UserID: uid, Committed: true}, nil
}

// Current returns the live session of the request. An expired session is
// refreshed with its refresh token before giving up.
func (s *SessionService) Current(ctx context.Context, j session.Jar) (*domain.Session, error) {
	sess, ok := s.store.Read(j)
	if !ok {
		return nil, port.ErrUnauthenticated
	}
	if !sess.Expired(s.now(), s.leeway) {
		return sess, nil
	}
	if sess.RefreshToken == "" {
		return nil, port.ErrUnauthenticated
	}

	res, err := s.provider.RefreshSession(ctx, sess.RefreshToken)
	if err != nil {
		slog.Warn("session refresh failed", "user_id", sess.UserID, "error", err)
		return nil, fmt.Errorf("%w: refresh failed", port.ErrUnauthenticated)
	}
	committed, err := s.commit(j, res.TokenTriple)
	if err != nil {
		slog.Warn("refreshed session rejected", "user_id", sess.UserID, "error", err)
		return nil, fmt.Errorf("%w: refresh failed", port.ErrUnauthenticated)
	}
	fresh := &domain.Session{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresAt:    res.ExpiresAt,
		UserID:       committed.UserID,
	}
	if fresh.Expired(s.now(), s.leeway) {
		return nil, port.ErrUnauthenticated
	}
	slog.Info("session refreshed", "user_id", fresh.UserID)
	return fresh, nil
}

// Profile resolves the profile of the current session. Every way of failing
// to identify the caller is reported as ErrUnauthenticated.
func (s *SessionService) Profile(ctx context.Context, j session.Jar) (*domain.Profile, error) {
	sess, err := s.Current(ctx, j)
	if err != nil {
		return nil, err
	}
	uid, err := s.verifier.VerifyAccessToken(ctx, sess.AccessToken)
	switch {
	case errors.Is(err, port.ErrUnauthenticated):
		slog.Warn("access token rejected", "user_id", sess.UserID, "error", err)
		return nil, port.ErrUnauthenticated
	case err != nil:
		return nil, port.Upstream("verify access token", err)
	}

	p, err := s.profiles.GetProfile(ctx, uid)
	switch {
	case errors.Is(err, port.ErrNotFound):
		return nil, port.ErrUnauthenticated
	case err != nil:
		return nil, port.Upstream("get profile", err)
	}
	return p, nil
}

// Peek returns the stored session without checking expiry or refreshing.
func (s *SessionService) Peek(j session.Jar) (*domain.Session, bool) {
	return s.store.Read(j)
}

// End removes every session field from the client.
func (s *SessionService) End(j session.Jar) {
	s.store.Clear(j)
}
