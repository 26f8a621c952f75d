package sqlite

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/libflow/internal/repository"
)

// APIKeyRepository stores hashed bearer tokens for the MCP endpoint
type APIKeyRepository struct {
	db  *DB
	now func() time.Time
}

// NewAPIKeyRepository creates a new APIKeyRepository
func NewAPIKeyRepository(db *DB) *APIKeyRepository {
	return &APIKeyRepository{db: db, now: time.Now}
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// Add stores token under label. Adding a known token updates its label.
func (r *APIKeyRepository) Add(ctx context.Context, token, label string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO api_keys (key_hash, label, created_at) VALUES (?, ?, ?)
		ON CONFLICT (key_hash) DO UPDATE SET label = excluded.label
	`, HashToken(token), label, toMillis(r.now()))
	if err != nil {
		return fmt.Errorf("failed to add api key: %w", err)
	}
	return nil
}

// Sync makes the stored keys match tokens, a map of label to token.
// Keys not in tokens are deleted. It returns the number deleted.
func (r *APIKeyRepository) Sync(ctx context.Context, tokens map[string]string) (int, error) {
	keep := make(map[string]string, len(tokens))
	for label, token := range tokens {
		keep[HashToken(token)] = label
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin api key sync: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `SELECT key_hash FROM api_keys`)
	if err != nil {
		return 0, fmt.Errorf("failed to list api keys: %w", err)
	}
	var stale []string
	for rows.Next() {
		var hash string
		if err := rows.Scan(&hash); err != nil {
			rows.Close()
			return 0, fmt.Errorf("failed to scan api key: %w", err)
		}
		if _, ok := keep[hash]; !ok {
			stale = append(stale, hash)
		}
	}
	if err := rows.Close(); err != nil {
		return 0, fmt.Errorf("failed to list api keys: %w", err)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("failed to list api keys: %w", err)
	}

	for _, hash := range stale {
		if _, err := tx.ExecContext(ctx, `DELETE FROM api_keys WHERE key_hash = ?`, hash); err != nil {
			return 0, fmt.Errorf("failed to delete api key: %w", err)
		}
	}
	now := toMillis(r.now())
	for hash, label := range keep {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO api_keys (key_hash, label, created_at) VALUES (?, ?, ?)
			ON CONFLICT (key_hash) DO UPDATE SET label = excluded.label
		`, hash, label, now)
		if err != nil {
			return 0, fmt.Errorf("failed to add api key: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit api key sync: %w", err)
	}
	return len(stale), nil
}

// Resolve returns the label of a known token and records its use.
func (r *APIKeyRepository) Resolve(ctx context.Context, token string) (string, error) {
	hash := HashToken(token)
	var label string
	err := r.db.QueryRowContext(ctx, `SELECT label FROM api_keys WHERE key_hash = ?`, hash).Scan(&label)
	if errors.Is(err, sql.ErrNoRows) {
		return "", repository.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve api key: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE api_keys SET last_used = ? WHERE key_hash = ?`, toMillis(r.now()), hash); err != nil {
		return "", fmt.Errorf("failed to record api key use: %w", err)
	}
	return label, nil
}
