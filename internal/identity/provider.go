// Package identity runs the OAuth2 authorization code flow against an
// external provider and returns the verified user.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/rpggio/libflow/internal/domain/session"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// GoogleUserInfoURL is the default userinfo endpoint.
const GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var (
	// ErrExchange indicates the authorization code was rejected.
	ErrExchange = errors.New("code exchange failed")
	// ErrUserInfo indicates the userinfo lookup failed.
	ErrUserInfo = errors.New("userinfo lookup failed")
	// ErrIncompleteIdentity indicates the provider returned no subject or email.
	ErrIncompleteIdentity = errors.New("provider identity is incomplete")
	// ErrUnverifiedEmail indicates the provider reports the email as unverified.
	ErrUnverifiedEmail = errors.New("provider email is not verified")
)

// Config describes the OAuth2 client. Empty endpoint URLs use Google's.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	RedirectURL  string
	Scopes       []string
}

// Provider wraps an oauth2.Config with a userinfo lookup.
type Provider struct {
	oauth       *oauth2.Config
	userInfoURL string
	logger      *slog.Logger
}

// NewProvider creates a provider.
func NewProvider(cfg Config, logger *slog.Logger) *Provider {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	endpoint := google.Endpoint
	if cfg.AuthURL != "" {
		endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		endpoint.TokenURL = cfg.TokenURL
	}
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		}
	}
	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = GoogleUserInfoURL
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		logger:      logger,
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// AuthCodeURL returns the provider URL the browser is sent to.
func (p *Provider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

type userInfo struct {
	ID            string `json:"id"`
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified *bool  `json:"email_verified"`
	VerifiedEmail *bool  `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// Exchange trades an authorization code for the user's identity.
func (p *Provider) Exchange(ctx context.Context, code string) (session.Identity, error) {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %w", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	resp, err := p.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return session.Identity{}, fmt.Errorf("%w: status %d", ErrUserInfo, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return session.Identity{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return session.Identity{}, fmt.Errorf("%w: %w", ErrUserInfo, err)
	}

	subject := info.ID
	if subject == "" {
		subject = info.Sub
	}
	if subject == "" || info.Email == "" {
		return session.Identity{}, ErrIncompleteIdentity
	}
	if (info.EmailVerified != nil && !*info.EmailVerified) || (info.VerifiedEmail != nil && !*info.VerifiedEmail) {
		return session.Identity{}, ErrUnverifiedEmail
	}

	p.logger.Debug("identity verified", "subject", subject)
	return session.Identity{
		Subject: subject,
		Email:   info.Email,
		Name:    info.Name,
		Picture: info.Picture,
	}, nil
}
