// Package web serves the LibFlow browser UI.
package web

import (
	"context"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/rpggio/libflow/internal/state"
)

// DefaultCookieName names the signed browser session cookie.
const DefaultCookieName = "libflow_session"

// SessionService is the subset of session.Service the web layer uses.
type SessionService interface {
	Begin(ctx context.Context, id session.Identity) (*session.Session, error)
	Resolve(ctx context.Context, id string) (*session.Session, error)
	End(ctx context.Context, id string) error
}

// Authenticator runs the external login flow.
type Authenticator interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (session.Identity, error)
}

// Config wires a Server.
type Config struct {
	Sessions      SessionService
	Registry      *state.Registry
	Authenticator Authenticator
	// Cookies stores the session reference and the OAuth state.
	Cookies    sessions.Store
	CookieName string
	// APIKeys guards MCP; MCP is mounted only when both are set.
	APIKeys TokenResolver
	MCP     http.Handler
	Metrics http.Handler
	Logger  *slog.Logger
	// Location formats dates. Nil means UTC.
	Location *time.Location
	// PollInterval is how often the loading page reloads itself.
	PollInterval time.Duration
}

// Server holds the handlers' dependencies.
type Server struct {
	sessions   SessionService
	registry   *state.Registry
	auth       Authenticator
	cookies    sessions.Store
	cookieName string
	location   *time.Location
	poll       time.Duration
	pages      map[string]*template.Template
	logger     *slog.Logger
}

// NewCookieStore creates the signed cookie store used for browser sessions.
func NewCookieStore(secret []byte, maxAge time.Duration, secure bool) *sessions.CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// NewRouter creates the HTTP router with middleware.
func NewRouter(cfg Config) (*chi.Mux, error) {
	if cfg.Sessions == nil || cfg.Registry == nil || cfg.Authenticator == nil || cfg.Cookies == nil {
		return nil, errors.New("web: sessions, registry, authenticator and cookies are required")
	}
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	srv := &Server{
		sessions:   cfg.Sessions,
		registry:   cfg.Registry,
		auth:       cfg.Authenticator,
		cookies:    cfg.Cookies,
		cookieName: cfg.CookieName,
		location:   cfg.Location,
		poll:       cfg.PollInterval,
		pages:      pages,
		logger:     logger,
	}
	if srv.cookieName == "" {
		srv.cookieName = DefaultCookieName
	}
	if srv.poll <= 0 {
		srv.poll = time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.MCP != nil && cfg.APIKeys != nil {
		r.Group(func(r chi.Router) {
			r.Use(BearerAuth(cfg.APIKeys))
			r.Handle("/mcp", cfg.MCP)
			r.Handle("/mcp/*", cfg.MCP)
		})
	}

	r.Group(func(r chi.Router) {
		r.Use(srv.sessionMiddleware)

		r.Get("/", srv.handleRoot)
		r.Get("/login", srv.handleLoginPage)
		r.Get("/auth/login", srv.handleAuthLogin)
		r.Get("/auth/callback", srv.handleAuthCallback)
		r.Post("/logout", srv.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(requireSession)
			r.Get("/{tab:dashboard|books|members}", srv.handleTab)
			r.Post("/refresh", srv.handleRefresh)
		})
	})

	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}
