package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/libflow/internal/repository"
)

const (
	// DefaultTTL is used when the service is built with a zero TTL.
	DefaultTTL = 12 * time.Hour

	// touchInterval limits last-seen writes to one per interval per session.
	touchInterval = time.Minute
)

// Service handles session lifecycle operations.
type Service struct {
	sessions Repository
	ttl      time.Duration
	now      func() time.Time
	logger   *slog.Logger
}

// NewService creates a new session service.
func NewService(sessions Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Service{
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
		logger:   logger,
	}
}

// SetClock replaces the time source. Used by tests.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// TTL returns the lifetime given to new sessions.
func (s *Service) TTL() time.Duration {
	return s.ttl
}

// Begin creates a session for a verified identity.
func (s *Service) Begin(ctx context.Context, id Identity) (*Session, error) {
	if strings.TrimSpace(id.Subject) == "" || strings.TrimSpace(id.Email) == "" {
		return nil, ErrInvalidInput
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		Subject:   id.Subject,
		Email:     id.Email,
		Name:      id.Name,
		AvatarURL: id.Picture,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		LastSeen:  now,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}
	s.logger.Info("session started", "session_id", sess.ID, "subject", sess.Subject)
	return sess, nil
}

// Resolve loads a session and checks its expiry. Expired sessions are
// deleted and reported as ErrSessionExpired.
func (s *Service) Resolve(ctx context.Context, id string) (*Session, error) {
	if id == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}

	now := s.now()
	if !sess.Authenticated(now) {
		if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", "session_id", id, "error", err)
		}
		return nil, ErrSessionExpired
	}

	if now.Sub(sess.LastSeen) >= touchInterval {
		if err := s.sessions.Touch(ctx, id, now); err != nil {
			s.logger.Warn("failed to touch session", "session_id", id, "error", err)
		} else {
			sess.LastSeen = now
		}
	}
	return sess, nil
}

// End deletes a session. Ending an unknown session is not an error.
func (s *Service) End(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	s.logger.Info("session ended", "session_id", id)
	return nil
}

// Purge removes expired sessions and returns their IDs.
func (s *Service) Purge(ctx context.Context) ([]string, error) {
	ids, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return nil, fmt.Errorf("purging sessions: %w", err)
	}
	if len(ids) > 0 {
		s.logger.Info("purged expired sessions", "count", len(ids))
	}
	return ids, nil
}
