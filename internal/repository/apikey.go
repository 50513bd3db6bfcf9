package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docextract/docextract/internal/model"
)

// ErrAPIKeyExists is returned when a generated digest collides with a stored key.
var ErrAPIKeyExists = errors.New("API key already exists")

// CreateAPIKey inserts a new API key into the database.
func (r *Repository) CreateAPIKey(ctx context.Context, key *model.APIKey) error {
	query := `
		INSERT INTO api_keys (api_key, user_id, key_prefix, created_at)
		VALUES ($1, $2, $3, $4)
	`

	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, query,
			key.Digest,
			key.UserID,
			key.KeyPrefix,
			key.CreatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrAPIKeyExists
			}
			return fmt.Errorf("failed to create API key: %w", err)
		}
		return nil
	})
}

// FindAPIKeys returns every API key stored under digest.
// The primary key makes more than one match impossible, but callers
// still check the count rather than trusting the schema.
func (r *Repository) FindAPIKeys(ctx context.Context, digest string) ([]*model.APIKey, error) {
	query := `
		SELECT api_key, user_id, key_prefix, created_at
		FROM api_keys
		WHERE api_key = $1
	`

	var keys []*model.APIKey
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, digest)
		if err != nil {
			return err
		}
		keys, err = collectAPIKeys(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find API keys: %w", err)
	}

	return keys, nil
}

// ListAPIKeysByUserID retrieves all API keys for a user, newest first.
func (r *Repository) ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error) {
	query := `
		SELECT api_key, user_id, key_prefix, created_at
		FROM api_keys
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	var keys []*model.APIKey
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, userID)
		if err != nil {
			return err
		}
		keys, err = collectAPIKeys(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list API keys: %w", err)
	}

	return keys, nil
}

// collectAPIKeys scans and closes rows.
func collectAPIKeys(rows pgx.Rows) ([]*model.APIKey, error) {
	defer rows.Close()

	var keys []*model.APIKey
	for rows.Next() {
		var key model.APIKey
		if err := rows.Scan(&key.Digest, &key.UserID, &key.KeyPrefix, &key.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan API key: %w", err)
		}
		keys = append(keys, &key)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating API keys: %w", err)
	}

	return keys, nil
}
