package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const cookieSecret = "0123456789abcdef0123456789abcdef"

// isolate points .env lookup at an empty directory and sets the required
// credentials.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("LIBFLOW_ENV_FILE", filepath.Join(dir, "missing.env"))
	t.Setenv("LIBFLOW_OAUTH_CLIENT_ID", "client")
	t.Setenv("LIBFLOW_OAUTH_CLIENT_SECRET", "secret")
	t.Setenv("LIBFLOW_COOKIE_SECRET", cookieSecret)
	return dir
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, "libflow.db", cfg.DB.Path)
	require.Equal(t, "http://localhost:8082/graphql", cfg.Backend.URL)
	require.Equal(t, 12*time.Hour, cfg.Auth.SessionTTL)
	require.Equal(t, "http://localhost:8080/auth/callback", cfg.Auth.RedirectURL)
	require.Equal(t, "https://accounts.google.com/o/oauth2/auth", cfg.Auth.AuthURL)
	require.False(t, cfg.MCP.Enabled)
	require.Equal(t, time.Second, cfg.Server.PollInterval)
	require.Equal(t, "libflow_session", cfg.Auth.CookieName)

	loc, err := cfg.Server.Location()
	require.NoError(t, err)
	require.Equal(t, time.UTC, loc)
}

func TestLoadPresentationSettings(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "libflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  poll_interval: 2s
  timezone: America/New_York
`), 0o600))
	t.Setenv("LIBFLOW_CONFIG_PATH", path)
	t.Setenv("LIBFLOW_COOKIE_NAME", "lf")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 2*time.Second, cfg.Server.PollInterval)
	require.Equal(t, "lf", cfg.Auth.CookieName)

	loc, err := cfg.Server.Location()
	require.NoError(t, err)
	require.Equal(t, "America/New_York", loc.String())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "libflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
  public_url: https://library.example.com
backend:
  url: http://backend:8082/graphql
  timeout: 3s
log:
  level: debug
mcp:
  enabled: true
  tokens:
    agent: file-token
`), 0o600))
	t.Setenv("LIBFLOW_CONFIG_PATH", path)
	t.Setenv("LIBFLOW_SERVER_PORT", "9191")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9191, cfg.Server.Port)
	require.Equal(t, "http://backend:8082/graphql", cfg.Backend.URL)
	require.Equal(t, 3*time.Second, cfg.Backend.Timeout)
	require.Equal(t, "debug", cfg.Log.Level)
	require.Equal(t, "https://library.example.com/auth/callback", cfg.Auth.RedirectURL)
	require.Equal(t, map[string]string{"agent": "file-token"}, cfg.MCP.Tokens)
}

func TestLoadEnvFile(t *testing.T) {
	dir := isolate(t)
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("LIBFLOW_DB_PATH=/tmp/from-dotenv.db\nLIBFLOW_MCP_TOKENS=a:one, b:two\n"), 0o600))
	t.Setenv("LIBFLOW_ENV_FILE", envFile)
	t.Cleanup(func() {
		os.Unsetenv("LIBFLOW_DB_PATH")
		os.Unsetenv("LIBFLOW_MCP_TOKENS")
	})

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-dotenv.db", cfg.DB.Path)
	require.Equal(t, map[string]string{"a": "one", "b": "two"}, cfg.MCP.Tokens)
}

func TestLoadRejectsBadEnv(t *testing.T) {
	tests := map[string]string{
		"LIBFLOW_SERVER_PORT":          "eighty",
		"LIBFLOW_BACKEND_TIMEOUT":      "soon",
		"LIBFLOW_COOKIE_SECURE":        "maybe",
		"LIBFLOW_SERVER_POLL_INTERVAL": "often",
		"LIBFLOW_MCP_TOKENS":           "no-colon",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			isolate(t)
			t.Setenv(name, value)
			_, err := Load()
			require.Error(t, err)
			require.Contains(t, err.Error(), name)
		})
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		cfg := Default()
		cfg.Auth.ClientID = "client"
		cfg.Auth.ClientSecret = "secret"
		cfg.Auth.CookieSecret = cookieSecret
		cfg.Auth.RedirectURL = "http://localhost:8080/auth/callback"
		return cfg
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port", func(c *Config) { c.Server.Port = 70000 }},
		{"poll interval", func(c *Config) { c.Server.PollInterval = 0 }},
		{"timezone", func(c *Config) { c.Server.Timezone = "Mars/Olympus_Mons" }},
		{"cookie name", func(c *Config) { c.Auth.CookieName = "" }},
		{"db path", func(c *Config) { c.DB.Path = "" }},
		{"log level", func(c *Config) { c.Log.Level = "loud" }},
		{"backend url", func(c *Config) { c.Backend.URL = "" }},
		{"client id", func(c *Config) { c.Auth.ClientID = "" }},
		{"short cookie secret", func(c *Config) { c.Auth.CookieSecret = "short" }},
		{"session ttl", func(c *Config) { c.Auth.SessionTTL = time.Second }},
		{"mcp without tokens", func(c *Config) { c.MCP.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
