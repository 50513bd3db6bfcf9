package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/docextract/docextract/internal/model"
)

// ErrProjectNotFound is returned when no project document has the given ID.
var ErrProjectNotFound = errors.New("project not found")

// projectDocument is the JSONB body stored for a project.
type projectDocument struct {
	Name   *string           `json:"name"`
	Fields []model.FieldSpec `json:"fields"`
}

// CreateProject inserts a project document.
func (r *Repository) CreateProject(ctx context.Context, project *model.Project) error {
	doc, err := json.Marshal(projectDocument{Name: project.Name, Fields: project.Fields})
	if err != nil {
		return fmt.Errorf("failed to encode project document: %w", err)
	}

	query := `
		INSERT INTO projects (id, document, created_at)
		VALUES ($1, $2, $3)
	`

	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		if _, err := conn.Exec(ctx, query, project.ID, doc, project.CreatedAt); err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		return nil
	})
}

// GetProject retrieves a project document by ID.
func (r *Repository) GetProject(ctx context.Context, id string) (*model.Project, error) {
	query := `
		SELECT document, created_at
		FROM projects
		WHERE id = $1
	`

	var (
		raw       []byte
		createdAt time.Time
	)
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, query, id).Scan(&raw, &createdAt)
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	var doc projectDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode project document: %w", err)
	}

	return &model.Project{
		ID:        id,
		Name:      doc.Name,
		Fields:    doc.Fields,
		CreatedAt: createdAt,
	}, nil
}

// ProjectExists reports whether a project document with id is stored.
func (r *Repository) ProjectExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := r.withConn(ctx, func(conn *pgxpool.Conn) error {
		return conn.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM projects WHERE id = $1)`, id).Scan(&exists)
	})
	if err != nil {
		return false, fmt.Errorf("failed to check project: %w", err)
	}
	return exists, nil
}

// DeleteProject removes a project document by ID.
func (r *Repository) DeleteProject(ctx context.Context, id string) error {
	return r.withConn(ctx, func(conn *pgxpool.Conn) error {
		result, err := conn.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete project: %w", err)
		}
		if result.RowsAffected() == 0 {
			return ErrProjectNotFound
		}
		return nil
	})
}
