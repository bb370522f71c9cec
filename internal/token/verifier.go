package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/golang-jwt/jwt/v5"
)

// Verifier checks HS256 access tokens against the provider's shared secret.
type Verifier struct {
	secret []byte
	parser *jwt.Parser
}

// VerifierOption configures a Verifier.
type VerifierOption func(*verifierConfig)

type verifierConfig struct {
	now func() time.Time
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) VerifierOption {
	return func(c *verifierConfig) { c.now = now }
}

// NewVerifier returns a Verifier for secret. An empty secret is rejected.
func NewVerifier(secret string, opts ...VerifierOption) (*Verifier, error) {
	if secret == "" {
		return nil, errors.New("token: verifier requires a secret")
	}
	cfg := verifierConfig{now: time.Now}
	for _, o := range opts {
		o(&cfg)
	}
	return &Verifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
			jwt.WithTimeFunc(cfg.now),
		),
	}, nil
}

// Verify validates signature and expiry and returns the claims.
// Any failure is reported as port.ErrUnauthenticated.
func (v *Verifier) Verify(accessToken string) (*Claims, error) {
	var claims Claims
	_, err := v.parser.ParseWithClaims(accessToken, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrUnauthenticated, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", port.ErrUnauthenticated)
	}
	return &claims, nil
}

// VerifyAccessToken implements port.TokenVerifier.
func (v *Verifier) VerifyAccessToken(_ context.Context, accessToken string) (string, error) {
	claims, err := v.Verify(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
