package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/docextract/docextract/internal/model"
)

const projectKeyPrefix = "project:"

// cachedProject is the JSON shape stored under project:{id}.
type cachedProject struct {
	Name   *string           `json:"name"`
	Fields []model.FieldSpec `json:"fields"`
}

func projectKey(id string) string {
	return projectKeyPrefix + id
}

// GetProject retrieves a project from cache.
// Returns ErrCacheMiss if not found.
func (c *Cache) GetProject(ctx context.Context, id string) (*model.Project, error) {
	raw, err := c.client.Get(ctx, projectKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var cp cachedProject
	if err := json.Unmarshal(raw, &cp); err != nil {
		// Corrupt entry; drop it so the next read repopulates.
		c.client.Del(ctx, projectKey(id))
		return nil, ErrCacheMiss
	}

	return &model.Project{ID: id, Name: cp.Name, Fields: cp.Fields}, nil
}

// SetProject stores a project in cache. A non-positive ttl stores without expiry.
func (c *Cache) SetProject(ctx context.Context, p *model.Project, ttl time.Duration) error {
	raw, err := json.Marshal(cachedProject{Name: p.Name, Fields: p.Fields})
	if err != nil {
		return fmt.Errorf("marshal project: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, projectKey(p.ID), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

// DeleteProject removes a project from cache.
func (c *Cache) DeleteProject(ctx context.Context, id string) error {
	if err := c.client.Del(ctx, projectKey(id)).Err(); err != nil {
		return fmt.Errorf("redis del failed: %w", err)
	}
	return nil
}
