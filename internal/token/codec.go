// Package token reads identity out of provider-issued access tokens.
//
// Decoding never checks signatures or expiry. Whoever serves data to the
// token's bearer owns that check (see Verifier).
package token

import (
	"fmt"
	"strings"

	"github.com/arturoeanton/coursesphere/internal/port"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the subset of access-token claims the platform reads.
type Claims struct {
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

var unverified = jwt.NewParser()

// Decode parses the claims segment of a three-segment bearer token.
func Decode(accessToken string) (*Claims, error) {
	if strings.Count(accessToken, ".") != 2 {
		return nil, fmt.Errorf("%w: expected three segments", port.ErrMalformedToken)
	}

	var claims Claims
	if _, _, err := unverified.ParseUnverified(accessToken, &claims); err != nil {
		return nil, fmt.Errorf("%w: %v", port.ErrMalformedToken, err)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing sub claim", port.ErrMalformedToken)
	}
	return &claims, nil
}

// DecodeSubject returns the sub claim (the user id) of accessToken.
func DecodeSubject(accessToken string) (string, error) {
	claims, err := Decode(accessToken)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
