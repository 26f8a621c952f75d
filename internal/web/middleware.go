package web

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/libflow/internal/domain/session"
)

// Cookie values stored in the signed browser session.
const (
	cookieSessionID  = "sid"
	cookieOAuthState = "oauth_state"
)

// requestLogger logs one line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// sessionMiddleware resolves the session referenced by the cookie once per
// request and stores it in the context. Expired or unknown references are
// removed from the cookie.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs, err := s.cookies.Get(r, s.cookieName)
		if err != nil {
			s.logger.Debug("discarding unreadable session cookie", "error", err)
		}
		id, _ := cs.Values[cookieSessionID].(string)
		if id == "" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := s.sessions.Resolve(r.Context(), id)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
			return
		case errors.Is(err, session.ErrSessionExpired), errors.Is(err, session.ErrSessionNotFound):
			s.logger.Info("session no longer valid", "session_id", id, "reason", err)
			s.registry.Drop(id)
			delete(cs.Values, cookieSessionID)
			if err := cs.Save(r, w); err != nil {
				s.logger.Error("failed to clear session cookie", "error", err)
			}
		default:
			s.logger.Error("failed to resolve session", "session_id", id, "error", err)
		}
		next.ServeHTTP(w, r)
	})
}

// requireSession redirects anonymous requests to the login page.
func requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := session.FromContext(r.Context()); !ok {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}
