package middleware

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/platform/ctxutil"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

const ctxKeySession = "vedablog.session"

type SessionMiddleware struct {
	log   *logger.Logger
	codec *session.CookieCodec
	store session.Store
	resp  response.Writer
}

func NewSessionMiddleware(log *logger.Logger, codec *session.CookieCodec, store session.Store, resp response.Writer) *SessionMiddleware {
	return &SessionMiddleware{
		log:   log.With("middleware", "SessionMiddleware"),
		codec: codec,
		store: store,
		resp:  resp,
	}
}

// Load resolves the session cookie into a principal. Anonymous requests
// pass through; a stale or forged cookie is cleared.
func (m *SessionMiddleware) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, err := c.Cookie(m.codec.Name())
		if err != nil || raw == "" {
			c.Next()
			return
		}
		id, err := m.codec.Decode(raw)
		if err != nil {
			if errors.Is(err, session.ErrBadCookie) {
				m.log.Debug("rejected session cookie", "path", c.Request.URL.Path)
			}
			m.clear(c)
			c.Next()
			return
		}
		sess, err := m.store.Get(c.Request.Context(), id)
		if err != nil {
			m.log.Warn("session lookup failed", "session_id", id, "error", err)
			c.Next()
			return
		}
		if sess == nil {
			m.clear(c)
			c.Next()
			return
		}
		Attach(c, sess)
		c.Next()
	}
}

// Attach puts sess on both the gin and request contexts.
func Attach(c *gin.Context, sess *session.Session) {
	c.Set(ctxKeySession, sess)
	ctx := session.WithPrincipal(c.Request.Context(), &sess.Principal)
	ctx = ctxutil.WithRequestData(ctx, &ctxutil.RequestData{UserID: sess.Principal.Subject, SessionID: sess.ID})
	c.Request = c.Request.WithContext(ctx)
}

func (m *SessionMiddleware) clear(c *gin.Context) {
	if ck, err := m.codec.Cookie(nil); err == nil {
		http.SetCookie(c.Writer, ck)
	}
}

func SessionFrom(c *gin.Context) *session.Session {
	v, ok := c.Get(ctxKeySession)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

func PrincipalFrom(c *gin.Context) *session.Principal {
	if s := SessionFrom(c); s != nil {
		return &s.Principal
	}
	return nil
}

// RequireAuth rejects API calls with 401 and sends browsers to login,
// remembering where they were going.
func (m *SessionMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if SessionFrom(c) != nil {
			c.Next()
			return
		}
		if response.IsAPI(c) {
			response.Unauthorized(c)
			return
		}
		target := "/auth/login"
		if c.Request.Method == http.MethodGet {
			target += "?return_to=" + url.QueryEscape(c.Request.URL.RequestURI())
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
	}
}

func (m *SessionMiddleware) RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := PrincipalFrom(c)
		if p == nil {
			m.resp.Error(c, apperr.Auth(apperr.SessionAbsent, "RequireRole", "Authentication required", nil))
			return
		}
		if !p.HasRole(role) {
			m.resp.Error(c, apperr.Auth(apperr.Forbidden, "RequireRole", "Insufficient role", nil))
			return
		}
		c.Next()
	}
}
