package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/metrics"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/repository"
)

const maxKeyRetries = 3

// UserStore persists users and their API keys.
type UserStore interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, userID string) (*model.User, error)
	ReplaceUser(ctx context.Context, userID string, user *model.User) error
	DeleteUserCascade(ctx context.Context, userID string) (int64, error)
	CreateAPIKey(ctx context.Context, key *model.APIKey) error
	FindAPIKeys(ctx context.Context, digest string) ([]*model.APIKey, error)
	ListAPIKeysByUserID(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// UserService handles users and credentials.
type UserService struct {
	store    UserStore
	digester *auth.Digester
	keyEnv   string
	metrics  metrics.Recorder
	log      *slog.Logger
}

// NewUserService creates a UserService. keyEnv selects the key namespace
// (auth.EnvLive or auth.EnvTest).
func NewUserService(store UserStore, digester *auth.Digester, keyEnv string, recorder metrics.Recorder, logger *slog.Logger) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &UserService{store: store, digester: digester, keyEnv: keyEnv, metrics: recorder, log: logger}
}

// Authenticate resolves an API key to its user. The key must match exactly
// one stored record, which must resolve to an existing user.
func (s *UserService) Authenticate(ctx context.Context, apiKey string) (*model.User, *model.AuthContext, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, nil, ErrNotAuthenticated
	}

	digest, err := s.digester.Digest(apiKey)
	if err != nil {
		return nil, nil, ErrInvalidAPIKey
	}

	keys, err := s.store.FindAPIKeys(ctx, digest)
	if err != nil {
		return nil, nil, fmt.Errorf("find api key: %w", err)
	}
	if len(keys) != 1 {
		s.log.Debug("api key rejected", "key_prefix", auth.DisplayPrefix(apiKey), "matches", len(keys))
		return nil, nil, ErrInvalidAPIKey
	}

	user, err := s.store.GetUserByID(ctx, keys[0].UserID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("get user: %w", err)
	}

	return user, &model.AuthContext{UserID: user.UserID, KeyPrefix: keys[0].KeyPrefix, User: user}, nil
}

// Create inserts a new user.
func (s *UserService) Create(ctx context.Context, user *model.User) error {
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrUserExists) {
			return ErrUserExists
		}
		return fmt.Errorf("create user: %w", err)
	}
	s.log.Info("user_created", "user_id", user.UserID)
	return nil
}

// Update replaces the stored user with the full payload.
func (s *UserService) Update(ctx context.Context, userID string, user *model.User) error {
	if user.UserID != userID {
		return ErrUserIDMismatch
	}
	if err := s.store.ReplaceUser(ctx, userID, user); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidUserID
		}
		return fmt.Errorf("update user: %w", err)
	}
	s.log.Info("user_updated", "user_id", userID)
	return nil
}

// Delete removes the user and every API key it owns.
func (s *UserService) Delete(ctx context.Context, userID string) error {
	keys, err := s.store.DeleteUserCascade(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return ErrInvalidUserID
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.log.Info("user_deleted", "user_id", userID, "api_keys_deleted", keys)
	return nil
}

// ListAPIKeys returns the display prefixes and creation times of the keys
// owned by userID. Digests never leave the store layer.
func (s *UserService) ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error) {
	keys, err := s.store.ListAPIKeysByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list api keys: %w", err)
	}
	if keys == nil {
		keys = []*model.APIKey{}
	}
	return keys, nil
}

// IssueAPIKey mints a key for userID. The plaintext is only ever returned here.
func (s *UserService) IssueAPIKey(ctx context.Context, userID string) (*model.APIKeyCreateResponse, error) {
	if _, err := s.store.GetUserByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	for attempt := 0; attempt < maxKeyRetries; attempt++ {
		gen, err := auth.GenerateAPIKey(s.keyEnv, s.digester)
		if err != nil {
			return nil, fmt.Errorf("generate api key: %w", err)
		}

		key := &model.APIKey{
			Digest:    gen.Digest,
			UserID:    userID,
			KeyPrefix: gen.Prefix,
			CreatedAt: time.Now().UTC(),
		}
		err = s.store.CreateAPIKey(ctx, key)
		if errors.Is(err, repository.ErrAPIKeyExists) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("store api key: %w", err)
		}

		s.metrics.IncAPIKeyIssued()
		s.log.Info("api_key_issued", "user_id", userID, "key_prefix", gen.Prefix)
		return &model.APIKeyCreateResponse{
			APIKey:    gen.Plaintext,
			KeyPrefix: gen.Prefix,
			UserID:    userID,
			CreatedAt: key.CreatedAt,
		}, nil
	}
	return nil, fmt.Errorf("store api key: %w", repository.ErrAPIKeyExists)
}
