package session

import (
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const DefaultCookieName = "vedablog.sid"

var ErrBadCookie = errors.New("session: invalid cookie")

type CookieConfig struct {
	Name   string
	Secret []byte
	TTL    time.Duration
	Secure bool
	Domain string
}

// CookieCodec signs the session id into the cookie value (HS256) so a
// forged or tampered id is rejected before touching the store.
type CookieCodec struct {
	cfg    CookieConfig
	parser *jwt.Parser
}

type cookieClaims struct {
	jwt.RegisteredClaims
}

func NewCookieCodec(cfg CookieConfig) *CookieCodec {
	if cfg.Name == "" {
		cfg.Name = DefaultCookieName
	}
	return &CookieCodec{
		cfg:    cfg,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired()),
	}
}

func (c *CookieCodec) Name() string { return c.cfg.Name }

func (c *CookieCodec) Encode(s *Session) (string, error) {
	claims := cookieClaims{RegisteredClaims: jwt.RegisteredClaims{
		ID:        s.ID,
		IssuedAt:  jwt.NewNumericDate(s.CreatedAt),
		ExpiresAt: jwt.NewNumericDate(s.ExpiresAt),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.cfg.Secret)
}

// Decode returns the session id from a cookie value.
func (c *CookieCodec) Decode(value string) (string, error) {
	if value == "" {
		return "", ErrNoSession
	}
	var claims cookieClaims
	tok, err := c.parser.ParseWithClaims(value, &claims, func(*jwt.Token) (interface{}, error) {
		return c.cfg.Secret, nil
	})
	if err != nil || !tok.Valid || claims.ID == "" {
		return "", ErrBadCookie
	}
	return claims.ID, nil
}

// Cookie builds the Set-Cookie value for s; a nil session clears the cookie.
func (c *CookieCodec) Cookie(s *Session) (*http.Cookie, error) {
	ck := &http.Cookie{
		Name:     c.cfg.Name,
		Path:     "/",
		Domain:   c.cfg.Domain,
		HttpOnly: true,
		Secure:   c.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if s == nil {
		ck.MaxAge = -1
		ck.Expires = time.Unix(0, 0)
		return ck, nil
	}
	val, err := c.Encode(s)
	if err != nil {
		return nil, err
	}
	ck.Value = val
	ck.MaxAge = int(time.Until(s.ExpiresAt).Seconds())
	ck.Expires = s.ExpiresAt
	return ck, nil
}
