package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/yungbote/vedablog/internal/pkg/httpx"
)

// IdentityClaims is what the application trusts from an identity token.
type IdentityClaims struct {
	Subject  string
	Username string
	Email    string
	Name     string
	Roles    []string
	Nonce    string
}

type IDTokenVerifier interface {
	Verify(ctx context.Context, rawIDToken string) (*IdentityClaims, error)
}

type OIDCVerifierConfig struct {
	JWKSURL  string
	Issuers  []string
	ClientID string
	// SkipSignature decodes the payload without checking the signature,
	// issuer or audience. Only for deployments with a trusted network path
	// to the identity provider.
	SkipSignature bool
	Leeway        time.Duration
}

func NewOIDCVerifier(httpClient *http.Client, cfg OIDCVerifierConfig) (IDTokenVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, fmt.Errorf("KEYCLOAK_CLIENT_ID is required")
	}
	if cfg.Leeway <= 0 {
		cfg.Leeway = 30 * time.Second
	}
	if cfg.SkipSignature {
		return &payloadDecoder{clientID: cfg.ClientID, leeway: cfg.Leeway}, nil
	}
	if strings.TrimSpace(cfg.JWKSURL) == "" {
		return nil, fmt.Errorf("jwks url is required")
	}
	if len(cfg.Issuers) == 0 {
		return nil, fmt.Errorf("at least one issuer is required")
	}
	jwks := newJWKSCache(httpClient)
	jwks.setURL(cfg.JWKSURL)
	return &realmVerifier{
		allowedIss:  cfg.Issuers,
		requiredAud: cfg.ClientID,
		algAllow:    []string{"RS256", "RS384", "RS512", "ES256", "ES384"},
		leeway:      cfg.Leeway,
		jwks:        jwks,
	}, nil
}

type realmVerifier struct {
	allowedIss  []string
	requiredAud string
	algAllow    []string
	leeway      time.Duration
	jwks        *jwksCache
}

func (p *realmVerifier) Verify(ctx context.Context, tokenString string) (*IdentityClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("id_token is empty")
	}

	parser := jwt.NewParser(jwt.WithValidMethods(p.algAllow), jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return p.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("invalid id_token")
	}

	if err := validateTimeClaims(claims, time.Now(), p.leeway); err != nil {
		return nil, err
	}
	iss, _ := claims["iss"].(string)
	if !containsIssuer(p.allowedIss, iss) {
		return nil, fmt.Errorf("issuer mismatch: %q", iss)
	}
	if !audContains(claims["aud"], p.requiredAud) {
		return nil, fmt.Errorf("audience mismatch")
	}
	return claimsToIdentity(claims, p.requiredAud)
}

// payloadDecoder reads the token payload as-is. Expiry is still enforced.
type payloadDecoder struct {
	clientID string
	leeway   time.Duration
}

func (d *payloadDecoder) Verify(_ context.Context, tokenString string) (*IdentityClaims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("id_token is empty")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("malformed id_token: %w", err)
	}
	if err := validateTimeClaims(claims, time.Now(), d.leeway); err != nil {
		return nil, err
	}
	return claimsToIdentity(claims, d.clientID)
}

func validateTimeClaims(claims jwt.MapClaims, now time.Time, leeway time.Duration) error {
	expAny, ok := claims["exp"]
	if !ok {
		return fmt.Errorf("missing exp")
	}
	exp, err := parseNumericTime(expAny)
	if err != nil {
		return fmt.Errorf("invalid exp: %w", err)
	}
	if now.After(exp.Add(leeway)) {
		return fmt.Errorf("token expired")
	}

	if nbfAny, ok := claims["nbf"]; ok {
		nbf, err := parseNumericTime(nbfAny)
		if err != nil {
			return fmt.Errorf("invalid nbf: %w", err)
		}
		if now.Add(leeway).Before(nbf) {
			return fmt.Errorf("token not valid yet")
		}
	}

	if iatAny, ok := claims["iat"]; ok {
		iat, err := parseNumericTime(iatAny)
		if err != nil {
			return fmt.Errorf("invalid iat: %w", err)
		}
		if iat.After(now.Add(5 * time.Minute)) {
			return fmt.Errorf("token issued in the future")
		}
	}
	return nil
}

func parseNumericTime(v any) (time.Time, error) {
	var sec int64
	switch x := v.(type) {
	case float64:
		sec = int64(x)
	case int64:
		sec = x
	case int:
		sec = int64(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return time.Time{}, err
		}
		sec = n
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		sec = n
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}
	if sec <= 0 {
		return time.Time{}, fmt.Errorf("non-positive numeric date")
	}
	return time.Unix(sec, 0).UTC(), nil
}

func constantTimeEq(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func containsIssuer(list []string, iss string) bool {
	iss = strings.TrimRight(iss, "/")
	for _, v := range list {
		if constantTimeEq(strings.TrimRight(v, "/"), iss) {
			return true
		}
	}
	return false
}

func audContains(aud any, required string) bool {
	switch v := aud.(type) {
	case string:
		return v == required
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && s == required {
				return true
			}
		}
	}
	return false
}

func claimsToIdentity(c jwt.MapClaims, clientID string) (*IdentityClaims, error) {
	out := &IdentityClaims{}
	out.Subject, _ = c["sub"].(string)
	if strings.TrimSpace(out.Subject) == "" {
		return nil, fmt.Errorf("missing sub")
	}
	out.Username, _ = c["preferred_username"].(string)
	out.Email, _ = c["email"].(string)
	out.Name, _ = c["name"].(string)
	if out.Name == "" {
		given, _ := c["given_name"].(string)
		family, _ := c["family_name"].(string)
		out.Name = strings.TrimSpace(given + " " + family)
	}
	out.Nonce, _ = c["nonce"].(string)
	out.Roles = realmRoles(c, clientID)
	return out, nil
}

// realmRoles merges realm_access.roles with resource_access[clientID].roles.
func realmRoles(c jwt.MapClaims, clientID string) []string {
	seen := map[string]bool{}
	var roles []string
	collect := func(v any) {
		m, _ := v.(map[string]any)
		list, _ := m["roles"].([]any)
		for _, it := range list {
			if s, ok := it.(string); ok && s != "" && !seen[s] {
				seen[s] = true
				roles = append(roles, s)
			}
		}
	}
	collect(c["realm_access"])
	if ra, ok := c["resource_access"].(map[string]any); ok {
		collect(ra[clientID])
	}
	return roles
}

// ----- JWKS cache (RSA + EC) -----

const jwksFetchAttempts = 3

type jwksCache struct {
	httpClient *http.Client

	mu      sync.RWMutex
	jwksURL string
	keys    map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey

	fetchedAt time.Time
	ttl       time.Duration
}

func newJWKSCache(httpClient *http.Client) *jwksCache {
	return &jwksCache{
		httpClient: httpClient,
		keys:       map[string]any{},
		ttl:        6 * time.Hour,
	}
}

func (j *jwksCache) setURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jwksURL = url
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`

	N string `json:"n"`
	E string `json:"e"`

	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// getKey refreshes on a stale cache or an unknown kid (key rotation).
func (j *jwksCache) getKey(ctx context.Context, kid string) (any, error) {
	j.mu.RLock()
	key := j.keys[kid]
	stale := time.Since(j.fetchedAt) > j.ttl
	url := j.jwksURL
	j.mu.RUnlock()

	if key != nil && !stale {
		return key, nil
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("jwks url not set")
	}

	if err := j.refresh(ctx, url); err != nil {
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	key = j.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	return key, nil
}

// refresh retries transient failures; the identity provider is often still
// starting when the first login arrives.
func (j *jwksCache) refresh(ctx context.Context, url string) error {
	var set jwkSet
	err := httpx.Retry(ctx, jwksFetchAttempts, 200*time.Millisecond, func(ctx context.Context) error {
		return j.fetch(ctx, url, &set)
	})
	if err != nil {
		return fmt.Errorf("jwks fetch failed: %w", err)
	}

	next := map[string]any{}
	for _, k := range set.Keys {
		if strings.TrimSpace(k.Kid) == "" || (k.Use != "" && k.Use != "sig") {
			continue
		}
		switch k.Kty {
		case "RSA":
			if pub, err := rsaFromModExp(k.N, k.E); err == nil {
				next[k.Kid] = pub
			}
		case "EC":
			if pub, err := ecdsaFromXY(k.Crv, k.X, k.Y); err == nil {
				next[k.Kid] = pub
			}
		}
	}
	if len(next) == 0 {
		return fmt.Errorf("jwks contained no usable keys")
	}

	j.mu.Lock()
	j.keys = next
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

func (j *jwksCache) fetch(ctx context.Context, url string, out *jwkSet) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	res, err := j.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if err := httpx.CheckStatus(res, 2*time.Second); err != nil {
		return err
	}
	*out = jwkSet{}
	return json.NewDecoder(res.Body).Decode(out)
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}
	return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil
}

func ecdsaFromXY(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}
	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}
	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("invalid EC point")
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
