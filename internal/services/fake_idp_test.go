package services

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	testRealm    = "vedablog"
	testClientID = "vedablog-client"
	testKID      = "test-key"
)

// fakeIdP serves the realm token and certs endpoints and signs RS256 ID
// tokens for whichever subject is configured next.
type fakeIdP struct {
	t   *testing.T
	srv *httptest.Server
	key *rsa.PrivateKey
	// forgeKey, when set, signs tokens with a key the certs endpoint does not publish.
	forgeKey *rsa.PrivateKey

	tokenHits atomic.Int64
	certHits  atomic.Int64

	mu          sync.Mutex
	subject     string
	username    string
	nonce       string
	roles       []string
	failStatus  int
	omitIDToken bool
	lastForm    map[string]string
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	f := &fakeIdP{t: t, key: key, subject: "kc-sub-1", username: "ada"}
	mux := http.NewServeMux()
	mux.HandleFunc("/realms/"+testRealm+"/protocol/openid-connect/token", f.token)
	mux.HandleFunc("/realms/"+testRealm+"/protocol/openid-connect/certs", f.certs)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) issuer() string { return f.srv.URL + "/realms/" + testRealm }

func (f *fakeIdP) identityConfig() IdentityConfig {
	return IdentityConfig{
		PublicURL:     f.srv.URL,
		Realm:         testRealm,
		ClientID:      testClientID,
		RedirectURL:   "http://app.test/auth/callback",
		PostLogoutURL: "http://app.test/?logout=success",
		Timeout:       5 * time.Second,
		SessionTTL:    time.Hour,
	}
}

func (f *fakeIdP) setIdentity(subject, username, nonce string, roles ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subject, f.username, f.nonce, f.roles = subject, username, nonce, roles
}

func (f *fakeIdP) failWith(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failStatus = status
}

func (f *fakeIdP) form() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *fakeIdP) signIDToken(claims jwt.MapClaims) string {
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	tok.Header["kid"] = testKID
	key := f.key
	if f.forgeKey != nil {
		key = f.forgeKey
	}
	raw, err := tok.SignedString(key)
	if err != nil {
		f.t.Fatalf("sign id token: %v", err)
	}
	return raw
}

func (f *fakeIdP) token(w http.ResponseWriter, r *http.Request) {
	f.tokenHits.Add(1)
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.mu.Lock()
	form := map[string]string{}
	for k := range r.PostForm {
		form[k] = r.PostForm.Get(k)
	}
	f.lastForm = form
	failStatus, omit := f.failStatus, f.omitIDToken
	claims := jwt.MapClaims{
		"iss":                f.issuer(),
		"aud":                testClientID,
		"sub":                f.subject,
		"preferred_username": f.username,
		"email":              f.username + "@example.test",
		"name":               "Ada Lovelace",
		"nonce":              f.nonce,
		"iat":                time.Now().Unix(),
		"exp":                time.Now().Add(5 * time.Minute).Unix(),
	}
	if len(f.roles) > 0 {
		roles := make([]any, 0, len(f.roles))
		for _, r := range f.roles {
			roles = append(roles, r)
		}
		claims["realm_access"] = map[string]any{"roles": roles}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failStatus != 0 {
		w.WriteHeader(failStatus)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	body := map[string]any{
		"access_token": "access-" + form["code"],
		"token_type":   "Bearer",
		"expires_in":   300,
	}
	if omit {
		body["access_token"] = f.signIDToken(claims)
	} else {
		body["id_token"] = f.signIDToken(claims)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func (f *fakeIdP) certs(w http.ResponseWriter, _ *http.Request) {
	f.certHits.Add(1)
	pub := f.key.PublicKey
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"keys": []map[string]string{{
			"kty": "RSA",
			"kid": testKID,
			"use": "sig",
			"alg": "RS256",
			"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			"e":   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		}},
	})
}
