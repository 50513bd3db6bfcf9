package testutil

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/docextract/docextract/internal/migrate"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/migrations"
)

// RequireEnv returns an environment variable or skips the test if missing.
func RequireEnv(t testing.TB, key string) string {
	t.Helper()
	value := os.Getenv(key)
	if value == "" {
		t.Skipf("%s not set", key)
	}
	return value
}

const advisoryLockID int64 = 420421

// AcquireDBLock grabs a global advisory lock to serialize DB tests.
func AcquireDBLock(ctx context.Context, pool *pgxpool.Pool) (func() error, error) {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire connection: %w", err)
	}

	if _, err := conn.Exec(ctx, "SELECT pg_advisory_lock($1)", advisoryLockID); err != nil {
		conn.Release()
		return nil, fmt.Errorf("acquire advisory lock: %w", err)
	}

	unlock := func() error {
		defer conn.Release()
		if _, err := conn.Exec(ctx, "SELECT pg_advisory_unlock($1)", advisoryLockID); err != nil {
			return fmt.Errorf("release advisory lock: %w", err)
		}
		return nil
	}

	return unlock, nil
}

// ResetSchema drops and recreates every table from the embedded migrations.
func ResetSchema(ctx context.Context, pool *pgxpool.Pool) error {
	all, err := migrate.Load(migrations.FS)
	if err != nil {
		return err
	}

	for i := len(all) - 1; i >= 0; i-- {
		if _, err := pool.Exec(ctx, all[i].Down); err != nil {
			return fmt.Errorf("apply %s down migration: %w", all[i].Name, err)
		}
	}
	for _, m := range all {
		if _, err := pool.Exec(ctx, m.Up); err != nil {
			return fmt.Errorf("apply %s up migration: %w", m.Name, err)
		}
	}

	return nil
}

// FlushRedis clears the current Redis database.
func FlushRedis(ctx context.Context, client *redis.Client) error {
	return client.FlushDB(ctx).Err()
}

// ============================================================================
// Test Data Factories
// ============================================================================

// NewTestUser creates a test user with sensible defaults.
func NewTestUser(t testing.TB, userID string) *model.User {
	t.Helper()
	return &model.User{
		UserID:     userID,
		Name:       "Test User",
		Email:      userID + "@example.com",
		APICredits: 10,
	}
}

// NewTestAPIKey creates a test API key owned by userID.
func NewTestAPIKey(t testing.TB, userID string) *model.APIKey {
	t.Helper()
	return &model.APIKey{
		Digest:    UniqueID("digest"),
		UserID:    userID,
		KeyPrefix: "abc123",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// NewTestProject creates a test project with one field of each data type.
func NewTestProject(t testing.TB, id string) *model.Project {
	t.Helper()
	name := "invoice"
	return &model.Project{
		ID:   id,
		Name: &name,
		Fields: []model.FieldSpec{
			{Name: "vendor", Description: "Vendor name", DataType: model.DataTypeString},
			{Name: "line_items", Description: "Number of line items", DataType: model.DataTypeInt},
			{Name: "total", Description: "Grand total", DataType: model.DataTypeFloat},
			{Name: "paid", Description: "Whether the invoice is paid", DataType: model.DataTypeBool},
		},
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

// UniqueID generates a unique ID for tests.
func UniqueID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
