// Package backendauth mints the bearer tokens the library backend's JWT
// middleware expects.
package backendauth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rpggio/libflow/internal/domain/session"
)

// ErrNoSecret is returned when a signer is built without a signing key.
var ErrNoSecret = errors.New("backend token secret is empty")

const defaultTTL = 10 * time.Minute

// Claims are the fields the backend reads from a token.
type Claims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens. The subject is taken from the session in the
// request context; calls without one are signed as the service subject.
type Signer struct {
	secret  []byte
	ttl     time.Duration
	service string
	now     func() time.Time
}

// NewSigner creates a signer. A zero ttl uses ten minutes.
func NewSigner(secret string, ttl time.Duration, service string) (*Signer, error) {
	if secret == "" {
		return nil, ErrNoSecret
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Signer{secret: []byte(secret), ttl: ttl, service: service, now: time.Now}, nil
}

// Token implements graphql.TokenSource.
func (s *Signer) Token(ctx context.Context) (string, error) {
	subject, email := s.service, ""
	if sess, ok := session.FromContext(ctx); ok {
		subject, email = sess.Subject, sess.Email
	}

	now := s.now()
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "libflow",
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("signing backend token: %w", err)
	}
	return signed, nil
}

// Parse verifies a token issued with the same secret.
func (s *Signer) Parse(token string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, errors.New("invalid backend token")
	}
	return claims, nil
}
