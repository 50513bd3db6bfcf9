// Package service provides business logic for the application.
package service

import (
	"errors"
	"fmt"

	"github.com/docextract/docextract/internal/llm"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/ocr"
)

// Client-facing errors. Each wraps a taxonomy error from model.
var (
	ErrProjectNotFound  = model.NewDetailError(model.ErrNotFound, "Project ID not found")
	ErrNotAuthenticated = model.NewDetailError(model.ErrForbidden, "Not authenticated")
	ErrInvalidAPIKey    = model.NewDetailError(model.ErrForbidden, "Invalid API key")
	ErrUserNotFound     = model.NewDetailError(model.ErrForbidden, "User not found")
	ErrInvalidUserID    = model.NewDetailError(model.ErrForbidden, "Invalid User ID")
	ErrUserExists       = model.NewDetailError(model.ErrConflict, "User already exists")
	ErrUserIDMismatch   = model.NewDetailError(model.ErrInvalidInput, "user_id in body does not match the path")
	ErrNoCredits        = model.NewDetailError(model.ErrInsufficientCredits, "Insufficient API credits")
)

// upstream tags provider failures so the boundary can answer 502.
func upstream(err error) error {
	if errors.Is(err, ocr.ErrProvider) || errors.Is(err, llm.ErrProvider) {
		return fmt.Errorf("%w: %w", model.ErrUpstream, err)
	}
	return err
}
