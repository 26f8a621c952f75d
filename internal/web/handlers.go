package web

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/rpggio/libflow/internal/identity"
	"github.com/rpggio/libflow/internal/state"
	"github.com/rpggio/libflow/internal/view"
)

// Login failure codes passed to /login?error=.
const (
	loginErrState    = "state"
	loginErrDenied   = "denied"
	loginErrExchange = "exchange"
	loginErrIdentity = "identity"
	loginErrInternal = "internal"
)

var loginMessages = map[string]string{
	loginErrState:    "Your sign-in attempt expired. Please try again.",
	loginErrDenied:   "Sign-in was cancelled.",
	loginErrExchange: "The identity provider rejected the sign-in.",
	loginErrIdentity: "Your account could not be verified.",
	loginErrInternal: "Something went wrong while signing you in.",
}

type loginData struct {
	Error string
}

type pageData struct {
	view.Page
	PollSeconds int
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := session.FromContext(r.Context()); ok {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}
	s.render(w, "login.html", http.StatusOK, loginData{Error: loginMessages[r.URL.Query().Get("error")]})
}

func (s *Server) handleAuthLogin(w http.ResponseWriter, r *http.Request) {
	oauthState, err := identity.NewState()
	if err != nil {
		s.fail(w, "failed to create oauth state", err)
		return
	}
	cs, _ := s.cookies.Get(r, s.cookieName)
	cs.Values[cookieOAuthState] = oauthState
	if err := cs.Save(r, w); err != nil {
		s.fail(w, "failed to save session cookie", err)
		return
	}
	http.Redirect(w, r, s.auth.AuthCodeURL(oauthState), http.StatusTemporaryRedirect)
}

// handleAuthCallback is where an authenticated session comes into being:
// after the state check, code exchange and userinfo lookup succeed.
func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	cs, _ := s.cookies.Get(r, s.cookieName)
	expected, _ := cs.Values[cookieOAuthState].(string)
	delete(cs.Values, cookieOAuthState)

	q := r.URL.Query()
	switch {
	case expected == "" || q.Get("state") != expected:
		s.logger.Warn("oauth state mismatch")
		s.loginFailed(w, r, cs, loginErrState)
		return
	case q.Get("error") != "":
		s.logger.Info("oauth sign-in denied", "error", q.Get("error"))
		s.loginFailed(w, r, cs, loginErrDenied)
		return
	}

	ident, err := s.auth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		s.logger.Warn("oauth exchange failed", "error", err)
		code := loginErrExchange
		if errors.Is(err, identity.ErrIncompleteIdentity) || errors.Is(err, identity.ErrUnverifiedEmail) {
			code = loginErrIdentity
		}
		s.loginFailed(w, r, cs, code)
		return
	}

	sess, err := s.sessions.Begin(r.Context(), ident)
	if err != nil {
		s.logger.Error("failed to begin session", "error", err)
		code := loginErrInternal
		if errors.Is(err, session.ErrInvalidInput) {
			code = loginErrIdentity
		}
		s.loginFailed(w, r, cs, code)
		return
	}

	cs.Values[cookieSessionID] = sess.ID
	if err := cs.Save(r, w); err != nil {
		s.fail(w, "failed to save session cookie", err)
		return
	}
	s.registry.Attach(sess)
	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

func (s *Server) loginFailed(w http.ResponseWriter, r *http.Request, cs cookieSession, code string) {
	if err := cs.Save(r, w); err != nil {
		s.logger.Error("failed to save session cookie", "error", err)
	}
	http.Redirect(w, r, "/login?error="+url.QueryEscape(code), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, ok := session.FromContext(r.Context()); ok {
		if c, ok := s.registry.Get(sess.ID); ok {
			c.Logout(r.Context())
		} else if err := s.sessions.End(r.Context(), sess.ID); err != nil {
			s.logger.Warn("failed to end session", "session_id", sess.ID, "error", err)
		}
		s.registry.Drop(sess.ID)
	}

	cs, _ := s.cookies.Get(r, s.cookieName)
	delete(cs.Values, cookieSessionID)
	cs.Options.MaxAge = -1
	if err := cs.Save(r, w); err != nil {
		s.logger.Error("failed to clear session cookie", "error", err)
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleTab(w http.ResponseWriter, r *http.Request) {
	tab, err := state.ParseTab(chi.URLParam(r, "tab"))
	if err != nil {
		http.NotFound(w, r)
		return
	}
	sess, _ := session.FromContext(r.Context())
	c := s.registry.Attach(sess)

	if err := c.SetTab(tab); err != nil && !errors.Is(err, state.ErrNotReady) {
		s.fail(w, "failed to switch tab", err)
		return
	}
	snap := c.Snapshot()
	snap.Tab = tab

	data := pageData{Page: view.Build(snap, view.Options{Location: s.location})}
	if data.Loading {
		data.PollSeconds = max(1, int(s.poll.Seconds()))
	}
	s.render(w, "app.html", http.StatusOK, data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	sess, _ := session.FromContext(r.Context())
	c := s.registry.Attach(sess)
	if _, err := c.RefreshAsync(); err != nil {
		s.logger.Warn("refresh rejected", "session_id", sess.ID, "error", err)
	}

	target := "/dashboard"
	if tab, err := state.ParseTab(r.FormValue("tab")); err == nil {
		target = "/" + string(tab)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}
