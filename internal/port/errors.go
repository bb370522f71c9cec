package port

import (
	"errors"
	"fmt"
)

// Sentinel errors used across ports. Every failure the session and
// authorization core reports wraps exactly one of these.
var (
	ErrValidation           = errors.New("validation failed")
	ErrMissingTokens        = errors.New("missing tokens")
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrForbidden            = errors.New("forbidden")
	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrInvalidOrExpiredCode = errors.New("invalid or expired code")
	ErrMalformedToken       = errors.New("malformed token")
	ErrUpstream             = errors.New("upstream error")
	ErrNotFound             = errors.New("not found")
)

// Validation returns an ErrValidation naming the offending field.
func Validation(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Upstream wraps a provider or store failure as ErrUpstream.
func Upstream(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", ErrUpstream, op, err)
}
