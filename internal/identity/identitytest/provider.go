// Package identitytest serves a fake OAuth2 provider for tests.
package identitytest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/libflow/internal/identity"
)

// User is what the fake userinfo endpoint returns.
type User struct {
	ID            string `json:"id,omitempty"`
	Sub           string `json:"sub,omitempty"`
	Email         string `json:"email,omitempty"`
	Name          string `json:"name,omitempty"`
	Picture       string `json:"picture,omitempty"`
	EmailVerified *bool  `json:"email_verified,omitempty"`
}

// Provider is a fake authorization server. Codes are registered with Grant.
type Provider struct {
	*httptest.Server

	mu     sync.Mutex
	codes  map[string]User
	tokens map[string]User
}

// Start runs a fake provider for the duration of the test.
func Start(t testing.TB) *Provider {
	t.Helper()
	p := &Provider{codes: make(map[string]User), tokens: make(map[string]User)}

	r := chi.NewRouter()
	r.Get("/authorize", p.authorize)
	r.Post("/token", p.token)
	r.Get("/userinfo", p.userinfo)
	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Close)
	return p
}

// Grant makes code exchangeable for user.
func (p *Provider) Grant(code string, user User) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.codes[code] = user
}

// Config returns an identity.Config pointing at the fake endpoints.
func (p *Provider) Config(redirectURL string) identity.Config {
	return identity.Config{
		ClientID:     "client",
		ClientSecret: "secret",
		AuthURL:      p.URL + "/authorize",
		TokenURL:     p.URL + "/token",
		UserInfoURL:  p.URL + "/userinfo",
		RedirectURL:  redirectURL,
		Scopes:       []string{"email", "profile"},
	}
}

// authorize immediately redirects back with the code "granted".
func (p *Provider) authorize(w http.ResponseWriter, r *http.Request) {
	redirect, err := url.Parse(r.URL.Query().Get("redirect_uri"))
	if err != nil {
		http.Error(w, "bad redirect_uri", http.StatusBadRequest)
		return
	}
	q := redirect.Query()
	q.Set("code", "granted")
	q.Set("state", r.URL.Query().Get("state"))
	redirect.RawQuery = q.Encode()
	http.Redirect(w, r, redirect.String(), http.StatusFound)
}

func (p *Provider) token(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	code := r.PostForm.Get("code")

	p.mu.Lock()
	user, ok := p.codes[code]
	if ok {
		delete(p.codes, code)
		p.tokens["at-"+code] = user
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if !ok {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{
		"access_token": "at-" + code,
		"token_type":   "Bearer",
		"expires_in":   3600,
	})
}

func (p *Provider) userinfo(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")

	p.mu.Lock()
	user, ok := p.tokens[token]
	p.mu.Unlock()

	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(user)
}
