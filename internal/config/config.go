package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/joho/godotenv"
	"golang.org/x/oauth2/google"
	"gopkg.in/yaml.v3"
)

// Config defines server configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	DB      DBConfig      `yaml:"db"`
	Log     LogConfig     `yaml:"log"`
	Backend BackendConfig `yaml:"backend"`
	Auth    AuthConfig    `yaml:"auth"`
	MCP     MCPConfig     `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// PublicURL is the externally visible base URL, used for the OAuth redirect.
	PublicURL string `yaml:"public_url"`
	// PollInterval is how often the loading page reloads itself.
	PollInterval time.Duration `yaml:"poll_interval"`
	// Timezone is an IANA name used to format member join dates.
	Timezone string `yaml:"timezone"`
}

// Location loads Timezone. An empty name is UTC.
func (s ServerConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

type BackendConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
	// TokenSecret signs backend bearer tokens. Empty disables the header.
	TokenSecret string        `yaml:"token_secret"`
	TokenTTL    time.Duration `yaml:"token_ttl"`
}

type AuthConfig struct {
	ClientID     string   `yaml:"client_id"`
	ClientSecret string   `yaml:"client_secret"`
	AuthURL      string   `yaml:"auth_url"`
	TokenURL     string   `yaml:"token_url"`
	UserInfoURL  string   `yaml:"userinfo_url"`
	RedirectURL  string   `yaml:"redirect_url"`
	Scopes       []string `yaml:"scopes"`

	SessionTTL    time.Duration `yaml:"session_ttl"`
	PurgeInterval time.Duration `yaml:"purge_interval"`
	CookieName    string        `yaml:"cookie_name"`
	CookieSecret  string        `yaml:"cookie_secret"`
	CookieSecure  bool          `yaml:"cookie_secure"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
	// Tokens maps client labels to bearer tokens.
	Tokens map[string]string `yaml:"tokens"`
}

const envPrefix = "LIBFLOW_"

// Default returns the configuration used before any file or environment
// overrides are applied.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			PublicURL:    "http://localhost:8080",
			PollInterval: time.Second,
			Timezone:     "UTC",
		},
		DB: DBConfig{
			Path: "libflow.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Backend: BackendConfig{
			URL:      "http://localhost:8082/graphql",
			Timeout:  10 * time.Second,
			TokenTTL: 10 * time.Minute,
		},
		Auth: AuthConfig{
			AuthURL:     google.Endpoint.AuthURL,
			TokenURL:    google.Endpoint.TokenURL,
			UserInfoURL: "https://www.googleapis.com/oauth2/v2/userinfo",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			SessionTTL:    12 * time.Hour,
			PurgeInterval: 10 * time.Minute,
			CookieName:    "libflow_session",
		},
	}
}

// Load reads configuration from defaults, an optional .env file, an optional
// YAML file and LIBFLOW_* environment variables, in that order, and
// validates the result.
func Load() (Config, error) {
	cfg := Default()

	envFile := os.Getenv(envPrefix + "ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	if path := os.Getenv(envPrefix + "CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Auth.RedirectURL == "" {
		cfg.Auth.RedirectURL = strings.TrimSuffix(cfg.Server.PublicURL, "/") + "/auth/callback"
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	var errs []error
	str := func(name string, dst *string) {
		if v := os.Getenv(envPrefix + name); v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int) {
		if v := os.Getenv(envPrefix + name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	dur := func(name string, dst *time.Duration) {
		if v := os.Getenv(envPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = d
		}
	}
	flag := func(name string, dst *bool) {
		if v := os.Getenv(envPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("invalid %s%s: %w", envPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	str("SERVER_HOST", &cfg.Server.Host)
	num("SERVER_PORT", &cfg.Server.Port)
	str("PUBLIC_URL", &cfg.Server.PublicURL)
	dur("SERVER_POLL_INTERVAL", &cfg.Server.PollInterval)
	str("SERVER_TIMEZONE", &cfg.Server.Timezone)
	str("DB_PATH", &cfg.DB.Path)
	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_PATH", &cfg.Log.Path)

	str("BACKEND_URL", &cfg.Backend.URL)
	dur("BACKEND_TIMEOUT", &cfg.Backend.Timeout)
	str("BACKEND_TOKEN_SECRET", &cfg.Backend.TokenSecret)
	dur("BACKEND_TOKEN_TTL", &cfg.Backend.TokenTTL)

	str("OAUTH_CLIENT_ID", &cfg.Auth.ClientID)
	str("OAUTH_CLIENT_SECRET", &cfg.Auth.ClientSecret)
	str("OAUTH_AUTH_URL", &cfg.Auth.AuthURL)
	str("OAUTH_TOKEN_URL", &cfg.Auth.TokenURL)
	str("OAUTH_USERINFO_URL", &cfg.Auth.UserInfoURL)
	str("OAUTH_REDIRECT_URL", &cfg.Auth.RedirectURL)
	if v := os.Getenv(envPrefix + "OAUTH_SCOPES"); v != "" {
		cfg.Auth.Scopes = splitList(v)
	}
	dur("SESSION_TTL", &cfg.Auth.SessionTTL)
	dur("SESSION_PURGE_INTERVAL", &cfg.Auth.PurgeInterval)
	str("COOKIE_NAME", &cfg.Auth.CookieName)
	str("COOKIE_SECRET", &cfg.Auth.CookieSecret)
	flag("COOKIE_SECURE", &cfg.Auth.CookieSecure)

	flag("MCP_ENABLED", &cfg.MCP.Enabled)
	if v := os.Getenv(envPrefix + "MCP_TOKENS"); v != "" {
		tokens, err := parseTokens(v)
		if err != nil {
			errs = append(errs, err)
		} else {
			cfg.MCP.Tokens = tokens
		}
	}
	return errors.Join(errs...)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTokens reads "label:token,label:token".
func parseTokens(v string) (map[string]string, error) {
	tokens := make(map[string]string)
	for _, pair := range splitList(v) {
		label, token, ok := strings.Cut(pair, ":")
		if !ok || strings.TrimSpace(label) == "" || strings.TrimSpace(token) == "" {
			return nil, fmt.Errorf("invalid %sMCP_TOKENS entry %q: want label:token", envPrefix, pair)
		}
		tokens[strings.TrimSpace(label)] = strings.TrimSpace(token)
	}
	return tokens, nil
}

// Validate rejects configurations the server cannot start with.
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Server),
		validation.Field(&c.DB),
		validation.Field(&c.Log),
		validation.Field(&c.Backend),
		validation.Field(&c.Auth),
		validation.Field(&c.MCP),
	)
}

func (s ServerConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Required, validation.Min(1), validation.Max(65535)),
		validation.Field(&s.PublicURL, validation.Required, is.URL),
		validation.Field(&s.PollInterval, validation.Required, validation.Min(100*time.Millisecond)),
		validation.Field(&s.Timezone, validation.By(func(any) error {
			_, err := s.Location()
			return err
		})),
	)
}

func (d DBConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Path, validation.Required),
	)
}

func (l LogConfig) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.Level, validation.In("debug", "info", "warn", "error")),
	)
}

func (b BackendConfig) Validate() error {
	return validation.ValidateStruct(&b,
		validation.Field(&b.URL, validation.Required, is.URL),
		validation.Field(&b.Timeout, validation.Min(time.Duration(0))),
		validation.Field(&b.TokenTTL, validation.Min(time.Duration(0))),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.ClientID, validation.Required),
		validation.Field(&a.ClientSecret, validation.Required),
		validation.Field(&a.AuthURL, validation.Required, is.URL),
		validation.Field(&a.TokenURL, validation.Required, is.URL),
		validation.Field(&a.UserInfoURL, validation.Required, is.URL),
		validation.Field(&a.RedirectURL, validation.Required, is.URL),
		validation.Field(&a.SessionTTL, validation.Required, validation.Min(time.Minute)),
		validation.Field(&a.PurgeInterval, validation.Required, validation.Min(time.Second)),
		validation.Field(&a.CookieName, validation.Required),
		validation.Field(&a.CookieSecret, validation.Required, validation.Length(32, 0)),
	)
}

func (m MCPConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Tokens, validation.When(m.Enabled, validation.Required.Error("at least one token is required when mcp is enabled"))),
	)
}
