package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/yungbote/vedablog/internal/data/repos"
	"github.com/yungbote/vedablog/internal/domain/apperr"
	"github.com/yungbote/vedablog/internal/domain/user"
	"github.com/yungbote/vedablog/internal/observability"
	"github.com/yungbote/vedablog/internal/pkg/dbctx"
	"github.com/yungbote/vedablog/internal/platform/logger"
	"github.com/yungbote/vedablog/internal/session"
)

type IdentityConfig struct {
	// PublicURL is the identity provider as the browser sees it; InternalURL
	// is used for server-to-server calls and defaults to PublicURL.
	PublicURL     string
	InternalURL   string
	Realm         string
	ClientID      string
	ClientSecret  string
	RedirectURL   string
	PostLogoutURL string
	Scopes        []string
	Timeout       time.Duration
	SessionTTL    time.Duration
}

func (c IdentityConfig) realmURL(base string) string {
	return strings.TrimRight(base, "/") + "/realms/" + url.PathEscape(c.Realm)
}

func (c IdentityConfig) internal() string {
	if strings.TrimSpace(c.InternalURL) != "" {
		return c.InternalURL
	}
	return c.PublicURL
}

func (c IdentityConfig) AuthURL() string {
	return c.realmURL(c.PublicURL) + "/protocol/openid-connect/auth"
}

func (c IdentityConfig) TokenURL() string {
	return c.realmURL(c.internal()) + "/protocol/openid-connect/token"
}

func (c IdentityConfig) JWKSURL() string {
	return c.realmURL(c.internal()) + "/protocol/openid-connect/certs"
}

func (c IdentityConfig) LogoutURL() string {
	return c.realmURL(c.PublicURL) + "/protocol/openid-connect/logout"
}

// Issuers lists the realm issuer as seen from both sides of the network.
func (c IdentityConfig) Issuers() []string {
	pub := c.realmURL(c.PublicURL)
	in := c.realmURL(c.internal())
	if pub == in {
		return []string{pub}
	}
	return []string{pub, in}
}

// LoginRequest carries the values the caller must keep until the callback.
type LoginRequest struct {
	URL      string
	State    string
	Nonce    string
	Verifier string
}

type CallbackInput struct {
	Code  string
	State string

	ExpectedState string
	Nonce         string
	Verifier      string
	// RedirectURL overrides the configured redirect when the provider was
	// sent to a different callback path.
	RedirectURL string
}

type IdentityBridge interface {
	BeginLogin(ctx context.Context) (*LoginRequest, error)
	// HandleCallback exchanges the code, provisions preferences on first login
	// and stores a new session.
	HandleCallback(ctx context.Context, in CallbackInput) (*session.Session, error)
	// EndSession destroys the session (absent is fine) and returns the
	// provider logout URL to redirect to.
	EndSession(ctx context.Context, sessionID string, idTokenHint string) (string, error)
}

type identityBridge struct {
	log        *logger.Logger
	cfg        IdentityConfig
	oauth      *oauth2.Config
	httpClient *http.Client
	verifier   IDTokenVerifier
	prefs      repos.PreferencesRepo
	sessions   session.Store
}

func NewIdentityBridge(
	log *logger.Logger,
	cfg IdentityConfig,
	httpClient *http.Client,
	verifier IDTokenVerifier,
	prefs repos.PreferencesRepo,
	sessions session.Store,
) (IdentityBridge, error) {
	if strings.TrimSpace(cfg.PublicURL) == "" || strings.TrimSpace(cfg.Realm) == "" {
		return nil, fmt.Errorf("identity provider url and realm are required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("identity provider client id is required")
	}
	if verifier == nil || prefs == nil || sessions == nil {
		return nil, fmt.Errorf("identity bridge missing dependency")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 24 * time.Hour
	}
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "profile", "email"}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}
	return &identityBridge{
		log: log.With("service", "IdentityBridge"),
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL(),
				TokenURL:  cfg.TokenURL(),
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
		verifier:   verifier,
		prefs:      prefs,
		sessions:   sessions,
	}, nil
}

func (b *identityBridge) BeginLogin(_ context.Context) (*LoginRequest, error) {
	state, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate nonce: %w", err)
	}
	verifier := oauth2.GenerateVerifier()
	authURL := b.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.S256ChallengeOption(verifier),
	)
	return &LoginRequest{URL: authURL, State: state, Nonce: nonce, Verifier: verifier}, nil
}

func (b *identityBridge) HandleCallback(ctx context.Context, in CallbackInput) (*session.Session, error) {
	const op = "IdentityBridge.HandleCallback"

	if strings.TrimSpace(in.Code) == "" {
		observability.Current().ObserveAuthCallback("missing_code")
		return nil, apperr.Auth(apperr.MissingCode, op, "authorization code is missing", nil)
	}
	if in.ExpectedState == "" || !constantTimeEq(in.State, in.ExpectedState) {
		observability.Current().ObserveAuthCallback("state_mismatch")
		return nil, apperr.Auth(apperr.StateMismatch, op, "login state does not match", nil)
	}

	tok, err := b.exchange(ctx, in)
	if err != nil {
		observability.Current().ObserveAuthCallback("exchange_failed")
		return nil, err
	}

	claims, err := b.identify(ctx, tok)
	if err != nil {
		observability.Current().ObserveAuthCallback("invalid_token")
		return nil, err
	}
	if in.Nonce != "" && !constantTimeEq(claims.Nonce, in.Nonce) {
		observability.Current().ObserveAuthCallback("invalid_token")
		return nil, apperr.Auth(apperr.InvalidIdentityToken, op, "nonce mismatch", nil)
	}

	displayName := claims.Username
	if displayName == "" {
		displayName = claims.Name
	}
	prefs, created, err := b.prefs.FindOrCreate(dbctx.New(ctx), user.NewPreferences(claims.Subject, displayName))
	if err != nil {
		observability.Current().ObserveAuthCallback("store_failed")
		return nil, err
	}
	if created {
		b.log.Info("provisioned user preferences", "user_id", claims.Subject, "username", claims.Username)
	}

	idToken, _ := tok.Extra("id_token").(string)
	sess := session.New(session.Principal{
		Subject:     claims.Subject,
		Username:    claims.Username,
		Email:       claims.Email,
		Name:        claims.Name,
		AccessToken: tok.AccessToken,
		IDToken:     idToken,
		Roles:       claims.Roles,
		Preferences: prefs,
	}, b.cfg.SessionTTL)
	if err := b.sessions.Save(ctx, sess); err != nil {
		observability.Current().ObserveAuthCallback("store_failed")
		return nil, fmt.Errorf("%s: save session: %w", op, err)
	}

	observability.Current().ObserveAuthCallback("success")
	b.log.Info("login succeeded", "user_id", claims.Subject, "session_id", sess.ID)
	return sess, nil
}

func (b *identityBridge) exchange(ctx context.Context, in CallbackInput) (*oauth2.Token, error) {
	const op = "IdentityBridge.exchange"

	ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)

	var opts []oauth2.AuthCodeOption
	if in.Verifier != "" {
		opts = append(opts, oauth2.VerifierOption(in.Verifier))
	}
	if in.RedirectURL != "" {
		opts = append(opts, oauth2.SetAuthURLParam("redirect_uri", in.RedirectURL))
	}

	tok, err := b.oauth.Exchange(ctx, in.Code, opts...)
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.Response != nil {
			b.log.Warn("token exchange rejected", "status", re.Response.StatusCode, "error_code", re.ErrorCode)
			return nil, apperr.Auth(apperr.TokenExchangeFailed, op,
				fmt.Sprintf("token exchange failed: %d", re.Response.StatusCode), err)
		}
		b.log.Warn("token exchange failed", "error", err)
		return nil, apperr.Auth(apperr.TokenExchangeFailed, op, "token exchange failed", err)
	}
	return tok, nil
}

// identify prefers the ID token. Without one, only a payload-decoding
// verifier may fall back to the access token.
func (b *identityBridge) identify(ctx context.Context, tok *oauth2.Token) (*IdentityClaims, error) {
	const op = "IdentityBridge.identify"

	raw, _ := tok.Extra("id_token").(string)
	if raw == "" {
		if _, decodeOnly := b.verifier.(*payloadDecoder); !decodeOnly {
			return nil, apperr.Auth(apperr.TokenExchangeFailed, op, "token response carried no id_token", nil)
		}
		raw = tok.AccessToken
	}
	claims, err := b.verifier.Verify(ctx, raw)
	if err != nil {
		b.log.Warn("identity token rejected", "error", err)
		return nil, apperr.Auth(apperr.InvalidIdentityToken, op, "identity token rejected", err)
	}
	return claims, nil
}

func (b *identityBridge) EndSession(ctx context.Context, sessionID string, idTokenHint string) (string, error) {
	if sessionID != "" {
		if err := b.sessions.Delete(ctx, sessionID); err != nil {
			return "", fmt.Errorf("IdentityBridge.EndSession: %w", err)
		}
		b.log.Info("session ended", "session_id", sessionID)
	}

	q := url.Values{}
	q.Set("client_id", b.cfg.ClientID)
	if b.cfg.PostLogoutURL != "" {
		q.Set("post_logout_redirect_uri", b.cfg.PostLogoutURL)
	}
	if idTokenHint != "" {
		q.Set("id_token_hint", idTokenHint)
	}
	return b.cfg.LogoutURL() + "?" + q.Encode(), nil
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
