package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/libflow/internal/backendauth"
	"github.com/rpggio/libflow/internal/config"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/rpggio/libflow/internal/graphql"
	"github.com/rpggio/libflow/internal/identity"
	"github.com/rpggio/libflow/internal/mcp"
	"github.com/rpggio/libflow/internal/sqlite"
	"github.com/rpggio/libflow/internal/state"
	"github.com/rpggio/libflow/internal/web"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logWriter := io.Writer(os.Stdout)
	if cfg.Log.Path != "" {
		fileWriter, file, err := newLogFileWriter(cfg.Log.Path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "log file error: %v\n", err)
		} else {
			defer file.Close()
			logWriter = fileWriter
		}
	}
	logger := slog.New(slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.Log.Level),
	}))

	if err := ensureDBDir(cfg.DB.Path); err != nil {
		logger.Error("failed to prepare database path", "error", err)
		os.Exit(1)
	}

	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	applied, err := db.Migrate(ctx)
	if err != nil {
		logger.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", cfg.DB.Path, "migrations_applied", applied)

	otel.SetTextMapPropagator(propagation.TraceContext{})

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	sessionSvc := session.NewService(sqlite.NewSessionRepository(db), cfg.Auth.SessionTTL, logger)

	var tokens graphql.TokenSource
	if cfg.Backend.TokenSecret != "" {
		signer, err := backendauth.NewSigner(cfg.Backend.TokenSecret, cfg.Backend.TokenTTL, "libflow-server")
		if err != nil {
			logger.Error("failed to create backend token signer", "error", err)
			os.Exit(1)
		}
		tokens = signer
	}
	library := graphql.New(cfg.Backend.URL, graphql.Options{
		Timeout: cfg.Backend.Timeout,
		Tokens:  tokens,
		Logger:  logger,
		Metrics: graphql.NewMetrics(reg),
	})

	registry := state.NewRegistry(state.Options{
		Fetcher:        library,
		Sessions:       sessionSvc,
		Logger:         logger,
		Metrics:        state.NewMetrics(reg),
		RefreshTimeout: cfg.Backend.Timeout + 5*time.Second,
	})

	provider := identity.NewProvider(identity.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		AuthURL:      cfg.Auth.AuthURL,
		TokenURL:     cfg.Auth.TokenURL,
		UserInfoURL:  cfg.Auth.UserInfoURL,
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       cfg.Auth.Scopes,
	}, logger)

	location, err := cfg.Server.Location()
	if err != nil {
		logger.Error("invalid timezone", "error", err)
		os.Exit(1)
	}

	webCfg := web.Config{
		Sessions:      sessionSvc,
		Registry:      registry,
		Authenticator: provider,
		Cookies:       web.NewCookieStore([]byte(cfg.Auth.CookieSecret), cfg.Auth.SessionTTL, cfg.Auth.CookieSecure),
		CookieName:    cfg.Auth.CookieName,
		Location:      location,
		PollInterval:  cfg.Server.PollInterval,
		Metrics:       promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		Logger:        logger,
	}

	if cfg.MCP.Enabled {
		apiKeys := sqlite.NewAPIKeyRepository(db)
		revoked, err := apiKeys.Sync(ctx, cfg.MCP.Tokens)
		if err != nil {
			logger.Error("failed to sync mcp tokens", "error", err)
			os.Exit(1)
		}
		if revoked > 0 {
			logger.Info("revoked mcp tokens no longer configured", "count", revoked)
		}
		mcpServer := mcp.NewServer(mcp.Config{Library: library, Logger: logger, Version: version})
		webCfg.APIKeys = apiKeys
		webCfg.MCP = sdkmcp.NewStreamableHTTPHandler(
			func(r *http.Request) *sdkmcp.Server { return mcpServer },
			&sdkmcp.StreamableHTTPOptions{
				Stateless:      false,
				SessionTimeout: 30 * time.Minute,
			},
		)
		logger.Info("mcp enabled", "clients", len(cfg.MCP.Tokens))
	}

	router, err := web.NewRouter(webCfg)
	if err != nil {
		logger.Error("failed to build router", "error", err)
		os.Exit(1)
	}

	go runJanitor(ctx, logger, sessionSvc, registry, cfg.Auth.PurgeInterval)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr, "public_url", cfg.Server.PublicURL, "backend", library.Endpoint())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	waitForShutdown(ctx, logger, httpServer)
}

// runJanitor purges expired sessions and forgets their containers.
func runJanitor(ctx context.Context, logger *slog.Logger, sessions *session.Service, registry *state.Registry, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ids, err := sessions.Purge(ctx)
			if err != nil {
				logger.Warn("session purge failed", "error", err)
				continue
			}
			registry.Drop(ids...)
		}
	}
}

func ensureDBDir(path string) error {
	if path == ":memory:" || path == "" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func waitForShutdown(ctx context.Context, logger *slog.Logger, server *http.Server) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
