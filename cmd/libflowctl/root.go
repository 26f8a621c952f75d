package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/libflow/internal/backendauth"
	"github.com/rpggio/libflow/internal/graphql"
	"github.com/rpggio/libflow/internal/mcp"
	"github.com/rpggio/libflow/internal/state"
	"github.com/rpggio/libflow/internal/view"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

const defaultEndpoint = "http://localhost:8082/graphql"

type options struct {
	endpoint    string
	tokenSecret string
	timeout     time.Duration
	logLevel    string
	bars        string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "libflowctl",
		Short:         "Inspect a LibFlow library backend from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&opts.endpoint, "endpoint", envOr("LIBFLOW_BACKEND_URL", defaultEndpoint), "GraphQL endpoint")
	flags.StringVar(&opts.tokenSecret, "token-secret", os.Getenv("LIBFLOW_BACKEND_TOKEN_SECRET"), "secret used to sign backend bearer tokens")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "request timeout")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.StringVar(&opts.bars, "bars", "auto", "draw availability bars (auto, always, never)")

	for _, tab := range state.Tabs() {
		root.AddCommand(newTabCmd(opts, tab))
	}
	root.AddCommand(newMCPCmd(opts))
	return root
}

func newTabCmd(opts *options, tab state.Tab) *cobra.Command {
	short := map[state.Tab]string{
		state.TabDashboard: "Show library statistics",
		state.TabBooks:     "List books with availability",
		state.TabMembers:   "List registered members",
	}[tab]
	return &cobra.Command{
		Use:   string(tab),
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := opts.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()

			snap := state.Once(ctx, client, opts.logger(cmd.ErrOrStderr()))
			snap.Tab = tab
			page := view.Build(snap, view.Options{Location: time.Local})

			bars, err := opts.useBars(cmd.OutOrStdout())
			if err != nil {
				return err
			}
			if err := view.WriteText(cmd.OutOrStdout(), page, view.TextOptions{Bars: bars}); err != nil {
				return err
			}
			if snap.Outcome.Books != nil && snap.Outcome.Members != nil {
				return fmt.Errorf("backend unavailable: %w", snap.Outcome.Err())
			}
			return nil
		},
	}
}

// newMCPCmd serves the MCP tools on stdin/stdout. Logs go to stderr to
// keep stdout clean for JSON-RPC.
func newMCPCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve library tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger(cmd.ErrOrStderr())
			client, err := opts.client(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			server := mcp.NewServer(mcp.Config{Library: client, Logger: logger})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			logger.Info("starting stdio transport", "endpoint", opts.endpoint)
			if err := server.Run(ctx, &sdkmcp.StdioTransport{}); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("stdio server: %w", err)
			}
			return nil
		},
	}
}

func (o *options) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	_ = level.UnmarshalText([]byte(o.logLevel))
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *options) client(logw io.Writer) (*graphql.Client, error) {
	gqlOpts := graphql.Options{Timeout: o.timeout, Logger: o.logger(logw)}
	if o.tokenSecret != "" {
		signer, err := backendauth.NewSigner(o.tokenSecret, 0, "libflowctl")
		if err != nil {
			return nil, err
		}
		gqlOpts.Tokens = signer
	}
	return graphql.New(o.endpoint, gqlOpts), nil
}

func (o *options) useBars(w io.Writer) (bool, error) {
	switch strings.ToLower(o.bars) {
	case "always":
		return true, nil
	case "never":
		return false, nil
	case "auto":
		f, ok := w.(*os.File)
		return ok && term.IsTerminal(int(f.Fd())), nil
	default:
		return false, fmt.Errorf("invalid --bars %q: want auto, always or never", o.bars)
	}
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
