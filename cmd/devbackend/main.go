// Command devbackend serves an in-memory library GraphQL backend with
// GraphiQL, seeded with sample data, for local development.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/libflow/internal/backendauth"
	"github.com/rpggio/libflow/internal/testbackend"
	"github.com/spf13/cobra"
)

func main() {
	if err := newCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newCmd() *cobra.Command {
	var (
		addr        string
		tokenSecret string
		empty       bool
	)
	cmd := &cobra.Command{
		Use:          "devbackend",
		Short:        "Serve a seeded in-memory library GraphQL backend",
		SilenceUsage: true,
		Args:         cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))

			backend := testbackend.New()
			if !empty {
				backend.Seed()
			}
			var verifier *backendauth.Signer
			if tokenSecret != "" {
				s, err := backendauth.NewSigner(tokenSecret, 0, "devbackend")
				if err != nil {
					return err
				}
				verifier = s
			}

			srv := &http.Server{
				Addr:              addr,
				Handler:           newRouter(backend, verifier, logger),
				ReadHeaderTimeout: 10 * time.Second,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("dev backend listening", "addr", addr, "graphiql", "http://"+addr+"/graphql", "auth", verifier != nil)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8082", "listen address")
	cmd.Flags().StringVar(&tokenSecret, "token-secret", os.Getenv("LIBFLOW_BACKEND_TOKEN_SECRET"), "require bearer tokens signed with this secret")
	cmd.Flags().BoolVar(&empty, "empty", false, "start without sample data")
	return cmd
}

func newRouter(backend *testbackend.Backend, verifier *backendauth.Signer, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	r.Group(func(r chi.Router) {
		if verifier != nil {
			r.Use(requireToken(verifier, logger))
		}
		r.Handle("/graphql", backend.Handler())
	})
	return r
}

// requireToken rejects POSTs without a valid signed bearer token. GETs are
// let through so GraphiQL loads in a browser.
func requireToken(verifier *backendauth.Signer, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet {
				next.ServeHTTP(w, r)
				return
			}
			token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
			claims, err := verifier.Parse(token)
			if err != nil {
				logger.Warn("rejected backend request", "error", err)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			logger.Debug("backend request", "subject", claims.Subject, "email", claims.Email)
			next.ServeHTTP(w, r)
		})
	}
}
