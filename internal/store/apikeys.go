package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/kortix-auth-service/internal/model"
)

const apiKeyColumns = `key_id, account_id, public_key, secret_key_hash, title,
	description, status, expires_at, last_used_at, created_at, updated_at`

func (p *Postgres) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	var description interface{}
	if key.Description != "" {
		description = key.Description
	}

	err := p.pool.QueryRow(ctx, `
		INSERT INTO api_keys (
			account_id, public_key, secret_key_hash, title, description, status, expires_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING key_id, created_at, updated_at
	`,
		key.AccountID, key.PublicKey, key.SecretKeyHash,
		key.Title, description, key.Status, key.ExpiresAt,
	).Scan(&key.KeyID, &key.CreatedAt, &key.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert api_key: %w", err)
	}
	return nil
}

func (p *Postgres) GetAPIKeyByPublicKey(ctx context.Context, publicKey string) (*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+apiKeyColumns+` FROM api_keys WHERE public_key = $1`, publicKey)
	if err != nil {
		return nil, fmt.Errorf("query api_key: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ErrNotFound
	}
	return scanAPIKeyFromRow(rows)
}

func (p *Postgres) ListAPIKeys(ctx context.Context, accountID string) ([]*model.APIKey, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT `+apiKeyColumns+` FROM api_keys WHERE account_id = $1 ORDER BY created_at DESC
	`, accountID)
	if err != nil {
		return nil, fmt.Errorf("list api_keys: %w", err)
	}
	defer rows.Close()

	keys := make([]*model.APIKey, 0)
	for rows.Next() {
		key, err := scanAPIKeyFromRow(rows)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// RevokeAPIKey flips an active key to revoked. Revoking an absent, foreign,
// or already-revoked key reports ErrNotFound; the status match keeps the
// second revoke consistently a 404.
func (p *Postgres) RevokeAPIKey(ctx context.Context, accountID string, keyID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE api_keys SET status = $1, updated_at = NOW()
		WHERE key_id = $2 AND account_id = $3 AND status = $4
	`, model.StatusRevoked, keyID, accountID, model.StatusActive)
	if err != nil {
		return fmt.Errorf("revoke api_key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) DeleteAPIKey(ctx context.Context, accountID string, keyID uuid.UUID) error {
	tag, err := p.pool.Exec(ctx, `
		DELETE FROM api_keys WHERE key_id = $1 AND account_id = $2
	`, keyID, accountID)
	if err != nil {
		return fmt.Errorf("delete api_key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) TouchAPIKey(ctx context.Context, keyID uuid.UUID, usedAt time.Time) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE api_keys SET last_used_at = $1 WHERE key_id = $2
	`, usedAt, keyID)
	if err != nil {
		return fmt.Errorf("touch api_key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanAPIKeyFromRow(rows pgx.Rows) (*model.APIKey, error) {
	var key model.APIKey
	var description *string

	err := rows.Scan(
		&key.KeyID, &key.AccountID, &key.PublicKey, &key.SecretKeyHash,
		&key.Title, &description, &key.Status,
		&key.ExpiresAt, &key.LastUsedAt, &key.CreatedAt, &key.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan api_key: %w", err)
	}

	if description != nil {
		key.Description = *description
	}

	return &key, nil
}

// IsNotFound reports whether err is the store's missing-row sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, pgx.ErrNoRows)
}
