package mocks

import (
	"context"
	"time"

	"github.com/rpggio/libflow/internal/domain/library"
	"github.com/rpggio/libflow/internal/domain/session"
	"github.com/stretchr/testify/mock"
)

// SessionRepository is a mock for session.Repository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session) error {
	args := m.Called(ctx, sess)
	return args.Error(0)
}

func (m *SessionRepository) Get(ctx context.Context, id string) (*session.Session, error) {
	args := m.Called(ctx, id)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Touch(ctx context.Context, id string, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

func (m *SessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) ([]string, error) {
	args := m.Called(ctx, now)
	if ids, ok := args.Get(0).([]string); ok {
		return ids, args.Error(1)
	}
	return nil, args.Error(1)
}

// Fetcher is a mock for the library read operations used by state.Container.
type Fetcher struct {
	mock.Mock
}

func (m *Fetcher) Books(ctx context.Context) ([]library.Book, error) {
	args := m.Called(ctx)
	if books, ok := args.Get(0).([]library.Book); ok {
		return books, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *Fetcher) Members(ctx context.Context) ([]library.Member, error) {
	args := m.Called(ctx)
	if members, ok := args.Get(0).([]library.Member); ok {
		return members, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionEnder is a mock for state.SessionEnder.
type SessionEnder struct {
	mock.Mock
}

func (m *SessionEnder) End(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
