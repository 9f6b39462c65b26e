package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/vedablog/internal/domain/user"
)

var ErrNoSession = errors.New("session: no session")

// Principal is the authenticated identity carried by a session.
type Principal struct {
	Subject     string            `json:"subject"`
	Username    string            `json:"username"`
	Email       string            `json:"email"`
	Name        string            `json:"name"`
	AccessToken string            `json:"access_token"`
	IDToken     string            `json:"id_token,omitempty"`
	Roles       []string          `json:"roles,omitempty"`
	Preferences *user.Preferences `json:"preferences,omitempty"`
}

func (p *Principal) HasRole(role string) bool {
	if p == nil || role == "" {
		return false
	}
	for _, r := range p.Roles {
		if strings.EqualFold(r, role) {
			return true
		}
	}
	return false
}

// DisplayName prefers the locally chosen name over identity-provider claims.
func (p *Principal) DisplayName() string {
	if p == nil {
		return ""
	}
	if n := p.Preferences.Name(); n != "" {
		return n
	}
	if p.Name != "" {
		return p.Name
	}
	return p.Username
}

type Session struct {
	ID        string    `json:"id"`
	Principal Principal `json:"principal"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func New(p Principal, ttl time.Duration) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:        uuid.NewString(),
		Principal: p,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
}

func (s *Session) Expired(now time.Time) bool {
	return s == nil || !now.Before(s.ExpiresAt)
}

// Store persists sessions server-side. Get returns (nil, nil) for unknown or
// expired ids; Delete of an unknown id is a no-op.
type Store interface {
	Get(ctx context.Context, id string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func PrincipalFrom(ctx context.Context) *Principal {
	if ctx == nil {
		return nil
	}
	p, _ := ctx.Value(principalKey{}).(*Principal)
	return p
}
