package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/libflow/internal/backendauth"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/rpggio/libflow/internal/graphql"
	"github.com/rpggio/libflow/internal/identity"
	"github.com/rpggio/libflow/internal/identity/identitytest"
	"github.com/rpggio/libflow/internal/sqlite"
	"github.com/rpggio/libflow/internal/state"
	"github.com/rpggio/libflow/internal/testbackend"
	"github.com/rpggio/libflow/internal/web"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type harness struct {
	app      *httptest.Server
	client   *http.Client
	backend  *testbackend.Backend
	idp      *identitytest.Provider
	sessions *session.Service
	registry *state.Registry
	clock    *clock
}

func newHarness(t *testing.T, opts ...func(*web.Config)) *harness {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	_, err = db.Migrate(ctx)
	require.NoError(t, err)

	apiKeys := sqlite.NewAPIKeyRepository(db)
	require.NoError(t, apiKeys.Add(ctx, "mcp-token", "agent"))

	backend := testbackend.New()
	backend.Seed()
	backendSrv := testbackend.Start(t, backend)

	signer, err := backendauth.NewSigner("backend-secret", time.Minute, "libflow-test")
	require.NoError(t, err)

	reg := prometheus.NewRegistry()
	client := graphql.New(backendSrv.URL, graphql.Options{
		Tokens:  signer,
		Metrics: graphql.NewMetrics(reg),
	})

	clk := &clock{now: time.Now()}
	sessions := session.NewService(sqlite.NewSessionRepository(db), time.Hour, nil)
	sessions.SetClock(clk.Now)

	registry := state.NewRegistry(state.Options{
		Fetcher:  client,
		Sessions: sessions,
		Metrics:  state.NewMetrics(reg),
	})

	idp := identitytest.Start(t)

	var router http.Handler
	app := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.Close)

	mcpStub := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client, _ := web.ClientFromContext(r.Context())
		_, _ = io.WriteString(w, "mcp:"+client)
	})

	cfg := web.Config{
		Sessions:      sessions,
		Registry:      registry,
		Authenticator: identity.NewProvider(idp.Config(app.URL+"/auth/callback"), nil),
		Cookies:       web.NewCookieStore([]byte("0123456789abcdef0123456789abcdef"), 24*time.Hour, false),
		APIKeys:       apiKeys,
		MCP:           mcpStub,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		PollInterval:  time.Second,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	router, err = web.NewRouter(cfg)
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &harness{
		app:      app,
		client:   &http.Client{Jar: jar},
		backend:  backend,
		idp:      idp,
		sessions: sessions,
		registry: registry,
		clock:    clk,
	}
}

func (h *harness) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.Get(h.app.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func (h *harness) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := h.client.PostForm(h.app.URL+path, form)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

// login runs the whole OAuth round trip and waits for the first load.
func (h *harness) login(t *testing.T) {
	t.Helper()
	h.idp.Grant("granted", identitytest.User{
		ID:    "google-123",
		Email: "ada@example.com",
		Name:  "Ada Lovelace",
	})
	resp, _ := h.get(t, "/auth/login")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "/dashboard", resp.Request.URL.Path)
	h.waitReady(t, "/dashboard")
}

func (h *harness) waitReady(t *testing.T, path string) string {
	t.Helper()
	var body string
	require.Eventually(t, func() bool {
		_, body = h.get(t, path)
		return !strings.Contains(body, "Fetching library statistics...")
	}, 5*time.Second, 20*time.Millisecond)
	return body
}

func TestAnonymousIsSentToLogin(t *testing.T) {
	h := newHarness(t)

	for _, path := range []string{"/", "/dashboard", "/books", "/members"} {
		resp, body := h.get(t, path)
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
		require.Equal(t, "/login", resp.Request.URL.Path, path)
		require.Contains(t, body, "Sign in with Google")
	}
	require.Zero(t, h.backend.Calls("books"))
}

func TestLoginLoadsDashboard(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	body := h.waitReady(t, "/dashboard")
	require.Contains(t, body, "Unique Titles")
	require.Contains(t, body, "<h3>3</h3>")
	require.Contains(t, body, "AL")
	require.Equal(t, 1, h.backend.Calls("books"))
	require.Equal(t, 1, h.backend.Calls("members"))
	require.Equal(t, 1, h.registry.Len())

	for _, auth := range h.backend.Authorizations() {
		require.True(t, strings.HasPrefix(auth, "Bearer "), auth)
	}
}

func TestTabsRenderWithoutFetching(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	_, books := h.get(t, "/books")
	require.Contains(t, books, "Dune")
	require.Contains(t, books, "3/5")
	require.Contains(t, books, "width: 60%")
	require.NotContains(t, books, "No books found in the library.")

	_, members := h.get(t, "/members")
	require.Contains(t, members, "Alice Johnson")
	require.Contains(t, members, "Jan 15, 2023")

	require.Equal(t, 1, h.backend.Calls("books"))
	require.Equal(t, 1, h.backend.Calls("members"))
}

func TestConfiguredLocationAndCookieName(t *testing.T) {
	h := newHarness(t, func(cfg *web.Config) {
		cfg.Location = time.FixedZone("UTC-11", -11*60*60)
		cfg.CookieName = "lf_session"
	})
	h.login(t)

	_, members := h.get(t, "/members")
	require.Contains(t, members, "Jan 14, 2023")
	require.NotContains(t, members, "Jan 15, 2023")

	appURL, err := url.Parse(h.app.URL)
	require.NoError(t, err)
	var names []string
	for _, c := range h.client.Jar.Cookies(appURL) {
		names = append(names, c.Name)
	}
	require.Contains(t, names, "lf_session")
	require.NotContains(t, names, web.DefaultCookieName)
}

func TestFailedCollectionShowsBanner(t *testing.T) {
	h := newHarness(t)
	h.backend.Fail("members", "database unavailable")
	h.login(t)

	_, body := h.get(t, "/members")
	require.Contains(t, body, "Could not load members from the library service.")
	require.Contains(t, body, "No members registered yet.")

	_, books := h.get(t, "/books")
	require.Contains(t, books, "Dune")
}

func TestRefreshRefetches(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp, _ := h.post(t, "/refresh", url.Values{"tab": {"books"}})
	require.Equal(t, "/books", resp.Request.URL.Path)
	h.waitReady(t, "/books")
	require.Equal(t, 2, h.backend.Calls("books"))
}

func TestStateMismatchCreatesNoSession(t *testing.T) {
	h := newHarness(t)
	h.idp.Grant("granted", identitytest.User{ID: "1", Email: "ada@example.com"})

	resp, body := h.get(t, "/auth/callback?code=granted&state=forged")
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "Your sign-in attempt expired.")
	require.Zero(t, h.registry.Len())

	resp, _ = h.get(t, "/dashboard")
	require.Equal(t, "/login", resp.Request.URL.Path)
}

func TestUnverifiedEmailIsRejected(t *testing.T) {
	h := newHarness(t)
	unverified := false
	h.idp.Grant("granted", identitytest.User{ID: "1", Email: "ada@example.com", EmailVerified: &unverified})

	resp, body := h.get(t, "/auth/login")
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "Your account could not be verified.")
	require.Zero(t, h.registry.Len())
}

func TestExpiredSessionReturnsToLogin(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	h.clock.Advance(2 * time.Hour)
	resp, _ := h.get(t, "/books")
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Zero(t, h.registry.Len())
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp, body := h.post(t, "/logout", nil)
	require.Equal(t, "/login", resp.Request.URL.Path)
	require.Contains(t, body, "Sign in with Google")
	require.Zero(t, h.registry.Len())

	resp, _ = h.get(t, "/dashboard")
	require.Equal(t, "/login", resp.Request.URL.Path)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHarness(t)
	h.login(t)

	resp, body := h.get(t, "/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "ok", body)

	_, metrics := h.get(t, "/metrics")
	require.Contains(t, metrics, "libflow_graphql_requests_total")
	require.Contains(t, metrics, "libflow_state_refreshes_total")
}

func TestMCPRequiresBearerToken(t *testing.T) {
	h := newHarness(t)

	resp, _ := h.post(t, "/mcp", nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err := http.NewRequest(http.MethodPost, h.app.URL+"/mcp", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer mcp-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "mcp:agent", string(body))
}
