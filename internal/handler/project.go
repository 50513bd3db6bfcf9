package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docextract/docextract/internal/handler/dto"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/validation"
)

// ProjectService is the schema registry used by ProjectHandler.
type ProjectService interface {
	Create(ctx context.Context, name *string, fields []model.FieldSpec) (string, error)
	Get(ctx context.Context, id string) (*model.Project, error)
	Delete(ctx context.Context, id string) error
}

// ProjectHandler serves /projectID.
type ProjectHandler struct {
	svc       ProjectService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(svc ProjectService, validator *validation.Validator, logger *slog.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, validator: validator, logger: logger}
}

// Get handles GET /projectID?project_id=<id>.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("project_id")
	if id == "" {
		handleServiceError(w, r, h.logger, fieldRequired("project_id"))
		return
	}

	project, err := h.svc.Get(r.Context(), id)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ToProjectResponse(project))
}

// Create handles POST /projectID.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	var req dto.ProjectRequest
	if err := h.validator.Decode(validation.Project, raw, &req); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	id, err := h.svc.Create(r.Context(), req.Name, req.Fields)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.ProjectIDResponse{ProjectID: id})
}

// Delete handles DELETE /projectID/{project_id}.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "project_id")

	if err := h.svc.Delete(r.Context(), id); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "Project deleted successfully"})
}
