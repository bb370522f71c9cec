// Package session persists the client session as guarded, origin-scoped
// cookies.
package session

import (
	"strconv"
	"time"

	"github.com/arturoeanton/coursesphere/internal/domain"
	"github.com/arturoeanton/coursesphere/internal/token"
	"github.com/gofiber/fiber/v3"
)

// Cookie names of the three session fields.
const (
	AccessTokenCookie  = "cs-access-token"
	RefreshTokenCookie = "cs-refresh-token"
	ExpiresAtCookie    = "cs-expires-at"
)

// Jar is the per-request cookie surface a Store reads from and writes to.
// fiber.Ctx satisfies it.
type Jar interface {
	Cookies(key string, defaultValue ...string) string
	Cookie(cookie *fiber.Cookie)
}

// Store reads and writes the session of the current request.
type Store interface {
	Commit(j Jar, s domain.Session)
	Read(j Jar) (*domain.Session, bool)
	Clear(j Jar)
}

// CookieOptions controls the attributes of the session cookies.
type CookieOptions struct {
	Domain string
	Path   string
	Secure bool
	// MaxAge bounds how long the browser keeps the cookies. It must outlive
	// the access token so the refresh token is still there on expiry.
	MaxAge time.Duration
}

// CookieStore keeps the session in three HttpOnly cookies.
type CookieStore struct {
	opts CookieOptions
}

// NewCookieStore creates a cookie-backed store.
func NewCookieStore(opts CookieOptions) *CookieStore {
	if opts.Path == "" {
		opts.Path = "/"
	}
	if opts.MaxAge <= 0 {
		opts.MaxAge = 30 * 24 * time.Hour
	}
	return &CookieStore{opts: opts}
}

// Commit writes all three fields in the same response.
func (s *CookieStore) Commit(j Jar, sess domain.Session) {
	maxAge := int(s.opts.MaxAge / time.Second)
	j.Cookie(s.cookie(AccessTokenCookie, sess.AccessToken, maxAge))
	j.Cookie(s.cookie(RefreshTokenCookie, sess.RefreshToken, maxAge))
	j.Cookie(s.cookie(ExpiresAtCookie, strconv.FormatInt(sess.ExpiresAt, 10), maxAge))
}

// Read returns the session carried by the request. A jar missing any of
// the three fields, or holding one that does not parse, has no session.
func (s *CookieStore) Read(j Jar) (*domain.Session, bool) {
	access := j.Cookies(AccessTokenCookie)
	refresh := j.Cookies(RefreshTokenCookie)
	rawExp := j.Cookies(ExpiresAtCookie)
	if access == "" || refresh == "" || rawExp == "" {
		return nil, false
	}
	exp, err := strconv.ParseInt(rawExp, 10, 64)
	if err != nil {
		return nil, false
	}
	uid, err := token.DecodeSubject(access)
	if err != nil {
		return nil, false
	}
	return &domain.Session{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresAt:    exp,
		UserID:       uid,
	}, true
}

// Clear expires all three fields in the same response.
func (s *CookieStore) Clear(j Jar) {
	for _, name := range []string{AccessTokenCookie, RefreshTokenCookie, ExpiresAtCookie} {
		c := s.cookie(name, "", -1)
		c.Expires = time.Unix(0, 0)
		j.Cookie(c)
	}
}

func (s *CookieStore) cookie(name, value string, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     s.opts.Path,
		Domain:   s.opts.Domain,
		MaxAge:   maxAge,
		Secure:   s.opts.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	}
}
