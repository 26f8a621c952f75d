package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/libflow/internal/repository"
	"github.com/stretchr/testify/require"
)

func TestAPIKeyRepository_AddResolve(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	require.NoError(t, repo.Add(ctx, "secret-token", "ci"))
	require.NoError(t, repo.Add(ctx, "secret-token", "ci-renamed"))

	label, err := repo.Resolve(ctx, "secret-token")
	require.NoError(t, err)
	require.Equal(t, "ci-renamed", label)

	_, err = repo.Resolve(ctx, "other")
	require.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAPIKeyRepository_SyncRevokesRemovedTokens(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	removed, err := repo.Sync(ctx, map[string]string{"ci": "old-token", "agent": "agent-token"})
	require.NoError(t, err)
	require.Zero(t, removed)

	removed, err = repo.Sync(ctx, map[string]string{"ci": "new-token", "agent": "agent-token"})
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Resolve(ctx, "old-token")
	require.ErrorIs(t, err, repository.ErrNotFound)

	label, err := repo.Resolve(ctx, "new-token")
	require.NoError(t, err)
	require.Equal(t, "ci", label)

	label, err = repo.Resolve(ctx, "agent-token")
	require.NoError(t, err)
	require.Equal(t, "agent", label)
}

func TestAPIKeyRepository_SyncEmptyRevokesAll(t *testing.T) {
	db := NewTestDB(t)
	ctx := context.Background()
	repo := NewAPIKeyRepository(db)

	require.NoError(t, repo.Add(ctx, "stray", "manual"))

	removed, err := repo.Sync(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, 1, removed)

	_, err = repo.Resolve(ctx, "stray")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
