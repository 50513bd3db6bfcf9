//go:build integration

package repository

import (
	"errors"
	"testing"

	"github.com/docextract/docextract/internal/testutil"
)

func TestIntegrationUserRepository_CreateAndGet(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	got, err := repo.GetUserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if *got != *user {
		t.Errorf("user mismatch: got %+v, want %+v", got, user)
	}
}

func TestIntegrationUserRepository_CreateDuplicate(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	if err := repo.CreateUser(ctx, user); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestIntegrationUserRepository_GetNotFound(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	if _, err := repo.GetUserByID(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationUserRepository_ReplaceUser(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	replacement := *user
	replacement.Name = "Renamed"
	replacement.Email = "renamed@example.com"
	replacement.APICredits = 99

	if err := repo.ReplaceUser(ctx, user.UserID, &replacement); err != nil {
		t.Fatalf("ReplaceUser failed: %v", err)
	}

	got, err := repo.GetUserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if *got != replacement {
		t.Errorf("user mismatch: got %+v, want %+v", got, replacement)
	}

	if err := repo.ReplaceUser(ctx, "missing", &replacement); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestIntegrationUserRepository_DeleteCascadesKeys(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := repo.CreateAPIKey(ctx, testutil.NewTestAPIKey(t, user.UserID)); err != nil {
			t.Fatalf("CreateAPIKey failed: %v", err)
		}
	}
	other := testutil.NewTestAPIKey(t, "someone-else")
	if err := repo.CreateAPIKey(ctx, other); err != nil {
		t.Fatalf("CreateAPIKey failed: %v", err)
	}

	deleted, err := repo.DeleteUserCascade(ctx, user.UserID)
	if err != nil {
		t.Fatalf("DeleteUserCascade failed: %v", err)
	}
	if deleted != 2 {
		t.Errorf("expected 2 keys deleted, got %d", deleted)
	}

	keys, err := repo.ListAPIKeysByUserID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("ListAPIKeysByUserID failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("expected no keys left, got %d", len(keys))
	}

	remaining, err := repo.FindAPIKeys(ctx, other.Digest)
	if err != nil {
		t.Fatalf("FindAPIKeys failed: %v", err)
	}
	if len(remaining) != 1 {
		t.Error("keys of other users must survive the cascade")
	}

	if _, err := repo.DeleteUserCascade(ctx, user.UserID); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound on second delete, got %v", err)
	}
}

func TestIntegrationUserRepository_DeleteWithoutKeys(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	deleted, err := repo.DeleteUserCascade(ctx, user.UserID)
	if err != nil {
		t.Fatalf("DeleteUserCascade failed: %v", err)
	}
	if deleted != 0 {
		t.Errorf("expected 0 keys deleted, got %d", deleted)
	}
}

func TestIntegrationUserRepository_Credits(t *testing.T) {
	ctx, repo := newRepositoryTestEnv(t)

	user := testutil.NewTestUser(t, testutil.UniqueID("user"))
	user.APICredits = 1
	if err := repo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser failed: %v", err)
	}

	remaining, err := repo.ConsumeCredit(ctx, user.UserID)
	if err != nil {
		t.Fatalf("ConsumeCredit failed: %v", err)
	}
	if remaining != 0 {
		t.Errorf("expected 0 credits remaining, got %d", remaining)
	}

	if _, err := repo.ConsumeCredit(ctx, user.UserID); !errors.Is(err, ErrCreditsExhausted) {
		t.Errorf("expected ErrCreditsExhausted, got %v", err)
	}

	if err := repo.RefundCredit(ctx, user.UserID); err != nil {
		t.Fatalf("RefundCredit failed: %v", err)
	}
	got, err := repo.GetUserByID(ctx, user.UserID)
	if err != nil {
		t.Fatalf("GetUserByID failed: %v", err)
	}
	if got.APICredits != 1 {
		t.Errorf("expected 1 credit after refund, got %d", got.APICredits)
	}
}
