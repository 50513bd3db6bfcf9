package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docextract/docextract/internal/model"
)

// Common errors for user repository operations.
var (
	ErrUserNotFound     = errors.New("user not found")
	ErrUserExists       = errors.New("user already exists")
	ErrCreditsExhausted = errors.New("no api credits left")
)

// CreateUser inserts a new user into the database.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (user_id, name, email, api_credits)
		VALUES ($1, $2, $3, $4)
	`

	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		_, err := conn.Exec(ctx, query,
			user.UserID,
			user.Name,
			user.Email,
			user.APICredits,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrUserExists
			}
			return fmt.Errorf("failed to create user: %w", err)
		}
		return nil
	})
}

// GetUserByID retrieves a user by their ID.
func (r *Repository) GetUserByID(ctx context.Context, userID string) (*model.User, error) {
	query := `
		SELECT user_id, name, email, api_credits
		FROM users
		WHERE user_id = $1
	`

	var user model.User
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, userID).Scan(
			&user.UserID,
			&user.Name,
			&user.Email,
			&user.APICredits,
		)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}

// ReplaceUser overwrites every column of the user identified by userID.
func (r *Repository) ReplaceUser(ctx context.Context, userID string, user *model.User) error {
	query := `
		UPDATE users
		SET name = $2, email = $3, api_credits = $4, updated_at = NOW()
		WHERE user_id = $1
	`

	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		result, err := conn.Exec(ctx, query,
			userID,
			user.Name,
			user.Email,
			user.APICredits,
		)
		if err != nil {
			return fmt.Errorf("failed to update user: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrUserNotFound
		}
		return nil
	})
}

// DeleteUserCascade removes a user and every API key it owns in one transaction.
// Returns the number of API keys removed.
func (r *Repository) DeleteUserCascade(ctx context.Context, userID string) (int64, error) {
	var keysDeleted int64

	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			result, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1`, userID)
			if err != nil {
				return fmt.Errorf("failed to delete user: %w", err)
			}
			if result.RowsAffected() == 0 {
				return ErrUserNotFound
			}

			result, err = tx.Exec(ctx, `DELETE FROM api_keys WHERE user_id = $1`, userID)
			if err != nil {
				return fmt.Errorf("failed to delete user API keys: %w", err)
			}
			keysDeleted = result.RowsAffected()
			return nil
		})
	})

	if err != nil {
		return 0, err
	}
	return keysDeleted, nil
}

// ConsumeCredit atomically takes one API credit from the user.
// Returns ErrCreditsExhausted when the balance is zero or the user is gone.
func (r *Repository) ConsumeCredit(ctx context.Context, userID string) (int64, error) {
	query := `
		UPDATE users
		SET api_credits = api_credits - 1, updated_at = NOW()
		WHERE user_id = $1 AND api_credits > 0
		RETURNING api_credits
	`

	var remaining int64
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, userID).Scan(&remaining)
	})

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, ErrCreditsExhausted
		}
		return 0, fmt.Errorf("failed to consume credit: %w", err)
	}

	return remaining, nil
}

// RefundCredit gives back a credit taken by ConsumeCredit.
func (r *Repository) RefundCredit(ctx context.Context, userID string) error {
	query := `
		UPDATE users
		SET api_credits = api_credits + 1, updated_at = NOW()
		WHERE user_id = $1
	`

	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, query, userID); err != nil {
			return fmt.Errorf("failed to refund credit: %w", err)
		}
		return nil
	})
}
