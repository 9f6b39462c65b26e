package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/services"
	"github.com/yungbote/vedablog/internal/session"
)

// Keys of the short-lived login cookie that carries state between
// BeginLogin and the callback.
const (
	loginStateKey    = "oauth_state"
	loginNonceKey    = "oauth_nonce"
	loginVerifierKey = "oauth_verifier"
	loginReturnKey   = "return_to"

	LoginStateCookie = "vedablog.login"
	LoginStateMaxAge = 10 * time.Minute
)

type AuthHandlerDeps struct {
	Log        *logger.Logger
	Bridge     services.IdentityBridge
	Profiles   services.ProfileService
	Engagement services.EngagementService
	Cookies    *session.CookieCodec
	Response   response.Writer
	// BaseURL is this site as the browser sees it; the root callback
	// redirect URI is derived from it.
	BaseURL string
}

type AuthHandler struct {
	log        *logger.Logger
	bridge     services.IdentityBridge
	profiles   services.ProfileService
	engagement services.EngagementService
	cookies    *session.CookieCodec
	resp       response.Writer
	baseURL    string
}

func NewAuthHandlerWithDeps(deps AuthHandlerDeps) *AuthHandler {
	log := deps.Log
	if log == nil {
		log = logger.Nop()
	}
	return &AuthHandler{
		log:        log.With("handler", "AuthHandler"),
		bridge:     deps.Bridge,
		profiles:   deps.Profiles,
		engagement: deps.Engagement,
		cookies:    deps.Cookies,
		resp:       deps.Response,
		baseURL:    strings.TrimRight(deps.BaseURL, "/"),
	}
}

func (h *AuthHandler) Login(c *gin.Context) {
	returnTo := safeReturnTo(c.Query("return_to"))
	if middleware.SessionFrom(c) != nil {
		if returnTo == "" {
			returnTo = "/"
		}
		c.Redirect(http.StatusFound, returnTo)
		return
	}

	req, err := h.bridge.BeginLogin(c.Request.Context())
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	ls := sessions.Default(c)
	ls.Set(loginStateKey, req.State)
	ls.Set(loginNonceKey, req.Nonce)
	ls.Set(loginVerifierKey, req.Verifier)
	ls.Set(loginReturnKey, returnTo)
	if err := ls.Save(); err != nil {
		h.resp.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, req.URL)
}

// Callback is the configured redirect URI.
func (h *AuthHandler) Callback(c *gin.Context) {
	h.finishLogin(c, "")
}

// HomeCallback serves providers configured with the site root as the
// redirect URI; it must send the same redirect_uri back on exchange.
func (h *AuthHandler) HomeCallback(c *gin.Context) {
	h.finishLogin(c, h.baseURL+"/")
}

func (h *AuthHandler) finishLogin(c *gin.Context, redirectURL string) {
	ls := sessions.Default(c)
	expected, _ := ls.Get(loginStateKey).(string)
	nonce, _ := ls.Get(loginNonceKey).(string)
	verifier, _ := ls.Get(loginVerifierKey).(string)
	returnTo, _ := ls.Get(loginReturnKey).(string)
	ls.Clear()
	if err := ls.Save(); err != nil {
		h.log.Warn("clear login state failed", "error", err)
	}

	if idpErr := c.Query("error"); idpErr != "" {
		h.log.Warn("identity provider returned an error", "error_code", idpErr)
		c.Redirect(http.StatusFound, "/?login=error")
		return
	}

	sess, err := h.bridge.HandleCallback(c.Request.Context(), services.CallbackInput{
		Code:          c.Query("code"),
		State:         c.Query("state"),
		ExpectedState: expected,
		Nonce:         nonce,
		Verifier:      verifier,
		RedirectURL:   redirectURL,
	})
	if err != nil {
		h.log.Warn("login callback failed", "reason", string(apperr.CodeOf(err)), "error", err)
		c.Redirect(http.StatusFound, "/?login=error")
		return
	}

	ck, err := h.cookies.Cookie(sess)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	http.SetCookie(c.Writer, ck)

	if target := safeReturnTo(returnTo); target != "" {
		c.Redirect(http.StatusFound, target)
		return
	}
	c.Redirect(http.StatusFound, "/?login=success")
}

func (h *AuthHandler) Logout(c *gin.Context) {
	var id, idToken string
	if sess := middleware.SessionFrom(c); sess != nil {
		id, idToken = sess.ID, sess.Principal.IDToken
	}
	target, err := h.bridge.EndSession(c.Request.Context(), id, idToken)
	if ck, cerr := h.cookies.Cookie(nil); cerr == nil {
		http.SetCookie(c.Writer, ck)
	}
	if err != nil {
		h.log.Warn("end session failed", "error", err)
		c.Redirect(http.StatusFound, "/")
		return
	}
	c.Redirect(http.StatusFound, target)
}

func (h *AuthHandler) Profile(c *gin.Context) {
	prefs, err := h.profiles.Get(c.Request.Context(), middleware.PrincipalFrom(c))
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.resp.Page(c, http.StatusOK, "profile.html", "My Profile", gin.H{
		"Preferences": prefs,
		"Updated":     c.Query("updated") == "true",
	})
}

func (h *AuthHandler) UpdateProfile(c *gin.Context) {
	_, err := h.profiles.Update(c.Request.Context(), middleware.SessionFrom(c), services.ProfileUpdate{
		DisplayName:        c.PostForm("display_name"),
		EmailNotifications: checkbox(c.PostForm("email_notifications")),
	})
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	c.Redirect(http.StatusFound, "/auth/profile?updated=true")
}

func (h *AuthHandler) Dashboard(c *gin.Context) {
	p := middleware.PrincipalFrom(c)
	favorites, err := h.engagement.ListFavorites(c.Request.Context(), p.Subject)
	if err != nil {
		h.resp.Error(c, err)
		return
	}
	h.resp.Page(c, http.StatusOK, "dashboard.html", "My Dashboard", gin.H{"Favorites": favorites})
}

func checkbox(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}
