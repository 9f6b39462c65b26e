package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yungbote/vedablog/internal/data/repos"
	"github.com/yungbote/vedablog/internal/data/repos/testutil"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	httpH "github.com/yungbote/vedablog/internal/http/handlers"
	httpMW "github.com/yungbote/vedablog/internal/http/middleware"
	"github.com/yungbote/vedablog/internal/http/response"
	"github.com/yungbote/vedablog/internal/http/views"
	"github.com/yungbote/vedablog/internal/services"
	"github.com/yungbote/vedablog/internal/session"
)

type stubBridge struct {
	store session.Store
	roles []string

	mu    sync.Mutex
	calls []services.CallbackInput
}

func (b *stubBridge) BeginLogin(context.Context) (*services.LoginRequest, error) {
	return &services.LoginRequest{URL: "http://idp.test/auth?state=st", State: "st", Nonce: "n", Verifier: "v"}, nil
}

func (b *stubBridge) HandleCallback(ctx context.Context, in services.CallbackInput) (*session.Session, error) {
	b.mu.Lock()
	b.calls = append(b.calls, in)
	b.mu.Unlock()
	if in.Code == "" {
		return nil, apperr.Auth(apperr.MissingCode, "stub", "missing", nil)
	}
	if in.State != in.ExpectedState || in.ExpectedState == "" {
		return nil, apperr.Auth(apperr.StateMismatch, "stub", "state", nil)
	}
	s := session.New(session.Principal{Subject: "kc-1", Username: "ada", IDToken: "idt", Roles: b.roles}, time.Hour)
	return s, b.store.Save(ctx, s)
}

func (b *stubBridge) EndSession(ctx context.Context, id, hint string) (string, error) {
	if err := b.store.Delete(ctx, id); err != nil {
		return "", err
	}
	return "http://idp.test/logout?id_token_hint=" + url.QueryEscape(hint), nil
}

func (b *stubBridge) lastCall() services.CallbackInput {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[len(b.calls)-1]
}

type harness struct {
	t      *testing.T
	db     *gorm.DB
	engine *gin.Engine
	store  *session.MemoryStore
	codec  *session.CookieCodec
	bridge *stubBridge
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.DB(t)
	log := testutil.Logger(t)

	store := session.NewMemoryStore()
	codec := session.NewCookieCodec(session.CookieConfig{Secret: []byte("test-secret"), TTL: time.Hour})
	resp := response.Writer{}
	bridge := &stubBridge{store: store}

	dests := repos.NewDestinationRepo(db, log)
	favs := repos.NewFavoriteRepo(db, log)
	comments := repos.NewCommentRepo(db, log)
	ratings := repos.NewRatingRepo(db, log)
	prefs := repos.NewPreferencesRepo(db, log)
	destSvc := services.NewDestinationService(log, dests, favs, comments, ratings, nil)
	engSvc := services.NewEngagementService(db, log, dests, favs, comments, ratings, "moderator")
	profSvc := services.NewProfileService(log, prefs, store)

	tmpl, err := views.Load()
	if err != nil {
		t.Fatalf("load views: %v", err)
	}
	auth := httpH.NewAuthHandlerWithDeps(httpH.AuthHandlerDeps{
		Log: log, Bridge: bridge, Profiles: profSvc, Engagement: engSvc,
		Cookies: codec, Response: resp, BaseURL: "http://app.test",
	})
	engine := NewRouter(RouterConfig{
		Log:           log,
		Templates:     tmpl,
		LoginStore:    cookie.NewStore([]byte("login-state-secret")),
		Session:       httpMW.NewSessionMiddleware(log, codec, store, resp),
		Recovery:      httpMW.Recovery(log, resp),
		ModeratorRole: "moderator",
		AuthHandler:   auth,
		PageHandler: httpH.NewPageHandlerWithDeps(httpH.PageHandlerDeps{
			Log: log, Destinations: destSvc, Engagement: engSvc, Auth: auth, Response: resp,
		}),
		APIHandler: httpH.NewAPIHandlerWithDeps(httpH.APIHandlerDeps{
			Log: log, Destinations: destSvc, Engagement: engSvc, Response: resp,
		}),
		HealthHandler: httpH.NewHealthHandler(),
	})
	return &harness{t: t, db: db, engine: engine, store: store, codec: codec, bridge: bridge}
}

// loginAs stores a session directly and returns its cookie.
func (h *harness) loginAs(subject string, roles ...string) *http.Cookie {
	h.t.Helper()
	s := session.New(session.Principal{Subject: subject, Username: subject, Roles: roles}, time.Hour)
	if err := h.store.Save(context.Background(), s); err != nil {
		h.t.Fatalf("save session: %v", err)
	}
	ck, err := h.codec.Cookie(s)
	if err != nil {
		h.t.Fatalf("cookie: %v", err)
	}
	return ck
}

func (h *harness) do(method, target, body string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	h.t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, ck := range cookies {
		if ck != nil {
			req.AddCookie(ck)
		}
	}
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func cookieNamed(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == name {
			return ck
		}
	}
	return nil
}

func TestHealthEndpoints(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/health", "/api/health"} {
		rec := h.do(http.MethodGet, path, "")
		if rec.Code != http.StatusOK {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
		if body := decode(t, rec); body["status"] != "healthy" || body["timestamp"] == "" {
			t.Fatalf("%s: unexpected body %v", path, body)
		}
	}
	if _, ok := decode(t, h.do(http.MethodGet, "/health", ""))["uptime"]; !ok {
		t.Fatalf("/health should report uptime")
	}
}

func TestRatingScenarioLatestValueWins(t *testing.T) {
	h := newHarness(t)
	kyoto := testutil.SeedDestination(t, h.db, "kyoto", "Kyoto", true)
	userA := h.loginAs("user-a")
	id := jsonInt(kyoto.ID)

	for _, v := range []string{"4", "5"} {
		rec := h.do(http.MethodPost, "/api/ratings", `{"destination_id":`+id+`,"rating":`+v+`}`, userA)
		if rec.Code != http.StatusOK {
			t.Fatalf("rate %s: status %d body %s", v, rec.Code, rec.Body.String())
		}
	}
	rec := h.do(http.MethodGet, "/api/ratings/"+id, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
	body := decode(t, rec)
	if body["average"] != 5.0 || body["count"] != 1.0 {
		t.Fatalf("unexpected aggregate: %v", body)
	}

	for _, bad := range []string{"0", "6", `"x"`} {
		rec := h.do(http.MethodPost, "/api/ratings", `{"destination_id":`+id+`,"rating":`+bad+`}`, userA)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("rating %s: status %d", bad, rec.Code)
		}
	}
}

func TestFavoritesAPI(t *testing.T) {
	h := newHarness(t)
	kyoto := testutil.SeedDestination(t, h.db, "kyoto", "Kyoto", false)
	path := "/api/favorites/" + jsonInt(kyoto.ID)

	if rec := h.do(http.MethodPost, path, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous add: status %d", rec.Code)
	}
	userA := h.loginAs("user-a")
	steps := []struct {
		method string
		want   int
	}{
		{http.MethodPost, http.StatusOK},
		{http.MethodPost, http.StatusConflict},
		{http.MethodDelete, http.StatusOK},
		{http.MethodDelete, http.StatusNotFound},
	}
	for i, st := range steps {
		if rec := h.do(st.method, path, "", userA); rec.Code != st.want {
			t.Fatalf("step %d %s: status %d want %d body %s", i, st.method, rec.Code, st.want, rec.Body.String())
		}
	}
	if rec := h.do(http.MethodPost, "/api/favorites/abc", "", userA); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: status %d", rec.Code)
	}
	rec := h.do(http.MethodGet, "/api/favorites", "", userA)
	if favs, _ := decode(t, rec)["favorites"].([]any); rec.Code != http.StatusOK || len(favs) != 0 {
		t.Fatalf("list: status %d body %s", rec.Code, rec.Body.String())
	}
}

func TestCommentsAPIAndModeration(t *testing.T) {
	h := newHarness(t)
	kyoto := testutil.SeedDestination(t, h.db, "kyoto", "Kyoto", false)
	id := jsonInt(kyoto.ID)
	userA := h.loginAs("user-a")

	if rec := h.do(http.MethodPost, "/api/comments", `{"destination_id":`+id+`,"content":"abcd"}`, userA); rec.Code != http.StatusBadRequest {
		t.Fatalf("short comment: status %d", rec.Code)
	}
	rec := h.do(http.MethodPost, "/api/comments", `{"destination_id":`+id+`,"content":"Great food"}`, userA)
	if rec.Code != http.StatusOK {
		t.Fatalf("add: status %d body %s", rec.Code, rec.Body.String())
	}
	comment, _ := decode(t, rec)["comment"].(map[string]any)
	commentID := jsonInt(int64(comment["id"].(float64)))

	if list, _ := decode(t, h.do(http.MethodGet, "/api/comments/"+id, ""))["comments"].([]any); len(list) != 0 {
		t.Fatalf("unapproved comment must stay hidden: %v", list)
	}
	if rec := h.do(http.MethodPost, "/api/comments/"+commentID+"/approve", "", userA); rec.Code != http.StatusForbidden {
		t.Fatalf("non-moderator approve: status %d", rec.Code)
	}
	mod := h.loginAs("mod-1", "moderator")
	if pending, _ := decode(t, h.do(http.MethodGet, "/api/comments/pending", "", mod))["comments"].([]any); len(pending) != 1 {
		t.Fatalf("expected one pending comment, got %v", pending)
	}
	if rec := h.do(http.MethodPost, "/api/comments/"+commentID+"/approve", "", mod); rec.Code != http.StatusOK {
		t.Fatalf("approve: status %d body %s", rec.Code, rec.Body.String())
	}
	if list, _ := decode(t, h.do(http.MethodGet, "/api/comments/"+id, ""))["comments"].([]any); len(list) != 1 {
		t.Fatalf("approved comment should be visible: %v", list)
	}
}

func TestDestinationAPI(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDestination(t, h.db, "kyoto", "Kyoto", true)
	testutil.SeedDestination(t, h.db, "lisbon", "Lisbon", false)

	rec := h.do(http.MethodGet, "/api/destinations/kyoto", "")
	body := decode(t, rec)
	if rec.Code != http.StatusOK || body["slug"] != "kyoto" || body["favoriteCount"] != 0.0 {
		t.Fatalf("detail: status %d body %v", rec.Code, body)
	}
	if _, ok := body["ratings"].(map[string]any); !ok {
		t.Fatalf("detail should embed the rating aggregate: %v", body)
	}
	if rec := h.do(http.MethodGet, "/api/destinations/atlantis", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing: status %d", rec.Code)
	}
	body = decode(t, h.do(http.MethodGet, "/api/destinations?limit=1&offset=1", ""))
	if body["total"] != 1.0 {
		t.Fatalf("paged list: %v", body)
	}
	body = decode(t, h.do(http.MethodGet, "/api/destinations?q=lis", ""))
	if list, _ := body["destinations"].([]any); len(list) != 1 {
		t.Fatalf("search: %v", body)
	}
}

func TestWebPages(t *testing.T) {
	h := newHarness(t)
	testutil.SeedDestination(t, h.db, "kyoto", "Kyoto", true)

	rec := h.do(http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "Kyoto") {
		t.Fatalf("home: status %d", rec.Code)
	}
	if rec.Header().Get("Content-Security-Policy") == "" || rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("security headers missing")
	}
	if rec := h.do(http.MethodGet, "/search?q=kyo", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "/kyoto-page.html") {
		t.Fatalf("search: status %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/kyoto-page.html", ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "<h1>Kyoto</h1>") {
		t.Fatalf("detail: status %d", rec.Code)
	}
	rec = h.do(http.MethodGet, "/kyoto", "")
	if rec.Code != http.StatusMovedPermanently || rec.Header().Get("Location") != "/kyoto-page.html" {
		t.Fatalf("legacy redirect: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	for _, path := range []string{"/atlantis-page.html", "/atlantis", "/no/such/route"} {
		if rec := h.do(http.MethodGet, path, ""); rec.Code != http.StatusNotFound {
			t.Fatalf("%s: status %d", path, rec.Code)
		}
	}
}

func TestWebGuardRedirectsToLogin(t *testing.T) {
	h := newHarness(t)
	rec := h.do(http.MethodGet, "/favorites", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/login?return_to=%2Ffavorites" {
		t.Fatalf("guard: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	user := h.loginAs("user-a")
	if rec := h.do(http.MethodGet, "/favorites", "", user); rec.Code != http.StatusOK {
		t.Fatalf("favorites page: status %d", rec.Code)
	}
	if rec := h.do(http.MethodGet, "/auth/dashboard", "", user); rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d", rec.Code)
	}
}

func TestLoginCallbackLogoutFlow(t *testing.T) {
	h := newHarness(t)

	rec := h.do(http.MethodGet, "/auth/login?return_to=/favorites", "")
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "http://idp.test/auth?state=st" {
		t.Fatalf("login: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	loginState := cookieNamed(rec, httpH.LoginStateCookie)
	if loginState == nil {
		t.Fatalf("login state cookie not set")
	}

	rec = h.do(http.MethodGet, "/auth/callback?code=abc&state=st", "", loginState)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/favorites" {
		t.Fatalf("callback: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	call := h.bridge.lastCall()
	if call.ExpectedState != "st" || call.Nonce != "n" || call.Verifier != "v" || call.RedirectURL != "" {
		t.Fatalf("callback input not carried over: %+v", call)
	}
	sid := cookieNamed(rec, h.codec.Name())
	if sid == nil || sid.Value == "" {
		t.Fatalf("session cookie not set")
	}
	if h.store.Len() != 1 {
		t.Fatalf("expected one stored session, got %d", h.store.Len())
	}
	if rec := h.do(http.MethodGet, "/auth/dashboard", "", sid); rec.Code != http.StatusOK {
		t.Fatalf("dashboard after login: status %d", rec.Code)
	}

	rec = h.do(http.MethodGet, "/auth/logout", "", sid)
	if rec.Code != http.StatusFound || !strings.HasPrefix(rec.Header().Get("Location"), "http://idp.test/logout") {
		t.Fatalf("logout: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if h.store.Len() != 0 {
		t.Fatalf("session should be destroyed")
	}
	if rec := h.do(http.MethodGet, "/auth/logout", ""); rec.Code != http.StatusFound {
		t.Fatalf("logout without session: status %d", rec.Code)
	}
}

func TestCallbackFailuresRedirectWithError(t *testing.T) {
	h := newHarness(t)
	for _, target := range []string{"/auth/callback", "/auth/callback?code=abc&state=forged", "/auth/callback?error=access_denied"} {
		rec := h.do(http.MethodGet, target, "")
		if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/?login=error" {
			t.Fatalf("%s: status %d location %q", target, rec.Code, rec.Header().Get("Location"))
		}
	}
	if h.store.Len() != 0 {
		t.Fatalf("failed callbacks must not create sessions")
	}
}

func TestHomeDelegatesProviderCallback(t *testing.T) {
	h := newHarness(t)
	loginState := cookieNamed(h.do(http.MethodGet, "/auth/login", ""), httpH.LoginStateCookie)

	rec := h.do(http.MethodGet, "/?code=abc&state=st&iss=http%3A%2F%2Fidp.test", "", loginState)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/?login=success" {
		t.Fatalf("home callback: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}
	if got := h.bridge.lastCall().RedirectURL; got != "http://app.test/" {
		t.Fatalf("home callback redirect uri = %q", got)
	}
}

func TestProfileUpdate(t *testing.T) {
	h := newHarness(t)
	if err := h.db.Exec("INSERT INTO user_preferences (external_user_id, display_name, email_notifications, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"user-a", "Ada", true, time.Now(), time.Now()).Error; err != nil {
		t.Fatalf("seed preferences: %v", err)
	}
	user := h.loginAs("user-a")

	if rec := h.do(http.MethodGet, "/auth/profile", "", user); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Ada"`) {
		t.Fatalf("profile: status %d", rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/profile", strings.NewReader("display_name=Countess&email_notifications="))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(user)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/auth/profile?updated=true" {
		t.Fatalf("update: status %d location %q", rec.Code, rec.Header().Get("Location"))
	}

	var name string
	var notify bool
	row := h.db.Raw("SELECT display_name, email_notifications FROM user_preferences WHERE external_user_id = ?", "user-a").Row()
	if err := row.Scan(&name, &notify); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "Countess" || notify {
		t.Fatalf("unexpected stored preferences: %q %v", name, notify)
	}
}

func TestProfileUpdateBlankNameKeepsStored(t *testing.T) {
	h := newHarness(t)
	if err := h.db.Exec("INSERT INTO user_preferences (external_user_id, display_name, email_notifications, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"user-a", "Ada", false, time.Now(), time.Now()).Error; err != nil {
		t.Fatalf("seed preferences: %v", err)
	}
	user := h.loginAs("user-a")

	req := httptest.NewRequest(http.MethodPost, "/auth/profile", strings.NewReader("display_name=++&email_notifications=on"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(user)
	rec := httptest.NewRecorder()
	h.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusFound {
		t.Fatalf("update: status %d", rec.Code)
	}

	var name string
	var notify bool
	row := h.db.Raw("SELECT display_name, email_notifications FROM user_preferences WHERE external_user_id = ?", "user-a").Row()
	if err := row.Scan(&name, &notify); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if name != "Ada" || !notify {
		t.Fatalf("expected name kept with notifications on, got %q %v", name, notify)
	}

	if rec := h.do(http.MethodGet, "/auth/profile", "", user); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `value="Ada"`) {
		t.Fatalf("profile after update: status %d", rec.Code)
	}
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}
