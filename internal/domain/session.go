package domain

import "time"

// TokenTriple is the provider-issued credential set for one session.
type TokenTriple struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"` // unix seconds
}

// RawTokens is the untrusted, client-supplied form of a TokenTriple.
// ExpiresAt is kept as text until it has been parsed.
type RawTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    string
}

// Session is the committed client session.
type Session struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
	UserID       string `json:"user_id"`
}

// Expired reports whether the access token is past its provider expiry,
// treating anything within leeway of the deadline as already expired.
func (s Session) Expired(now time.Time, leeway time.Duration) bool {
	return now.Add(leeway).Unix() >= s.ExpiresAt
}
