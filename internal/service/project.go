package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/docextract/docextract/internal/cache"
	"github.com/docextract/docextract/internal/metrics"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/repository"
)

// ProjectStore persists project documents.
type ProjectStore interface {
	CreateProject(ctx context.Context, project *model.Project) error
	GetProject(ctx context.Context, id string) (*model.Project, error)
	ProjectExists(ctx context.Context, id string) (bool, error)
	DeleteProject(ctx context.Context, id string) error
}

// ProjectCache is a read-through cache in front of ProjectStore.
type ProjectCache interface {
	GetProject(ctx context.Context, id string) (*model.Project, error)
	SetProject(ctx context.Context, project *model.Project, ttl time.Duration) error
	DeleteProject(ctx context.Context, id string) error
}

// ProjectService handles the schema registry.
type ProjectService struct {
	store   ProjectStore
	cache   ProjectCache
	ttl     time.Duration
	metrics metrics.Recorder
	log     *slog.Logger
}

// NewProjectService creates a ProjectService. cache may be nil.
func NewProjectService(store ProjectStore, cache ProjectCache, ttl time.Duration, recorder metrics.Recorder, logger *slog.Logger) *ProjectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ProjectService{store: store, cache: cache, ttl: ttl, metrics: recorder, log: logger}
}

// Create stores a new project and returns its id.
// Field names are not checked for uniqueness.
func (s *ProjectService) Create(ctx context.Context, name *string, fields []model.FieldSpec) (string, error) {
	if fields == nil {
		fields = []model.FieldSpec{}
	}
	project := &model.Project{
		ID:        ulid.Make().String(),
		Name:      name,
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateProject(ctx, project); err != nil {
		return "", fmt.Errorf("create project: %w", err)
	}

	s.metrics.IncProjectCreated()
	s.log.Info("project_created",
		"project_id", project.ID,
		"fields", len(fields),
	)
	return project.ID, nil
}

// Get returns the project with id. Malformed and unknown ids both yield
// ErrProjectNotFound.
func (s *ProjectService) Get(ctx context.Context, id string) (*model.Project, error) {
	if !validProjectID(id) {
		return nil, ErrProjectNotFound
	}

	if s.cache != nil {
		p, err := s.cache.GetProject(ctx, id)
		if err == nil {
			s.metrics.IncProjectCacheHit()
			return p, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.log.Warn("project cache read failed", "project_id", id, "error", err)
		}
		s.metrics.IncProjectCacheMiss()
	}

	p, err := s.store.GetProject(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("get project: %w", err)
	}
	s.log.Debug("project loaded", "project_id", id, "name", p.Name, "fields", p.Fields)

	if s.cache != nil {
		if err := s.cache.SetProject(ctx, p, s.ttl); err != nil {
			s.log.Warn("project cache write failed", "project_id", id, "error", err)
			return p, nil
		}
		// A delete that committed between the store read and the cache
		// write has already run its invalidation; undo the write.
		exists, err := s.store.ProjectExists(ctx, id)
		if err != nil {
			s.log.Warn("project existence check failed", "project_id", id, "error", err)
			s.dropCached(ctx, id)
			return p, nil
		}
		if !exists {
			s.dropCached(ctx, id)
			return nil, ErrProjectNotFound
		}
	}
	return p, nil
}

func (s *ProjectService) dropCached(ctx context.Context, id string) {
	if err := s.cache.DeleteProject(ctx, id); err != nil {
		s.log.Warn("project cache invalidation failed", "project_id", id, "error", err)
	}
}

// Delete removes the project with id. A second delete of the same id fails
// with ErrProjectNotFound.
func (s *ProjectService) Delete(ctx context.Context, id string) error {
	if !validProjectID(id) {
		return ErrProjectNotFound
	}

	if err := s.store.DeleteProject(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProjectNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("delete project: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.DeleteProject(ctx, id); err != nil {
			s.log.Warn("project cache invalidation failed", "project_id", id, "error", err)
		}
	}

	s.metrics.IncProjectDeleted()
	s.log.Info("project_deleted", "project_id", id)
	return nil
}

func validProjectID(id string) bool {
	_, err := ulid.ParseStrict(id)
	return err == nil
}
