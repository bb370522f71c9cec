package port

import (
	"context"

	"github.com/arturoeanton/coursesphere/internal/domain"
)

// IdentityProvider abstracts the hosted authentication service.
// Implementations own password hashing, token signing and email delivery;
// the core only drives the exchanges.
//
// Implementations report a rejected credential pair as ErrInvalidCredentials,
// a rejected or consumed code as ErrInvalidOrExpiredCode, and everything else
// as ErrUpstream.
type IdentityProvider interface {
	// SignIn exchanges an email and password for a token triple.
	SignIn(ctx context.Context, email, password string) (*domain.AuthResult, error)

	// SignUp creates an account. The result carries tokens only when the
	// provider does not require email confirmation.
	SignUp(ctx context.Context, reg domain.Registration) (*domain.AuthResult, error)

	// SignOut revokes the session behind accessToken.
	SignOut(ctx context.Context, accessToken string) error

	// ResetPasswordForEmail asks the provider to deliver a reset code.
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error

	// ExchangeCodeForSession trades a one-time reset code for a session.
	ExchangeCodeForSession(ctx context.Context, code string) (*domain.AuthResult, error)

	// UpdateUser sets a new password for the user behind accessToken.
	UpdateUser(ctx context.Context, accessToken, password string) error

	// RefreshSession trades a refresh token for a fresh token triple.
	RefreshSession(ctx context.Context, refreshToken string) (*domain.AuthResult, error)
}

// TokenVerifier authenticates an access token and returns its subject.
// A forged, expired or revoked token is ErrUnauthenticated.
type TokenVerifier interface {
	VerifyAccessToken(ctx context.Context, accessToken string) (string, error)
}

// CodeGuard records consumed one-time codes so they cannot be replayed.
type CodeGuard interface {
	// Claim marks code as used. It returns false when the code was
	// already claimed.
	Claim(ctx context.Context, code string) (bool, error)

	// Release forgets a claim so the code can be tried again.
	Release(ctx context.Context, code string) error
}
