package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/handler/dto"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/validation"
)

// UserService manages users and their keys.
type UserService interface {
	Create(ctx context.Context, user *model.User) error
	Update(ctx context.Context, userID string, user *model.User) error
	Delete(ctx context.Context, userID string) error
	IssueAPIKey(ctx context.Context, userID string) (*model.APIKeyCreateResponse, error)
	ListAPIKeys(ctx context.Context, userID string) ([]*model.APIKey, error)
}

// UserHandler serves /user.
type UserHandler struct {
	svc       UserService
	validator *validation.Validator
	logger    *slog.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, validator *validation.Validator, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, validator: validator, logger: logger}
}

// Get handles GET /user/. The auth middleware has already resolved the caller.
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.AuthFromContext(r.Context())
	if authCtx == nil || authCtx.User == nil {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}
	writeJSON(w, http.StatusOK, authCtx.User)
}

// Create handles POST /user/.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Create(r.Context(), user); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User created successfully"})
}

// Update handles PATCH /user/{user_id}. The body replaces the whole record.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := h.decodeUser(w, r)
	if !ok {
		return
	}
	if err := h.svc.Update(r.Context(), chi.URLParam(r, "user_id"), user); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User updated successfully"})
}

// Delete handles DELETE /user/{user_id}.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "user_id")); err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.MessageResponse{Message: "User deleted successfully"})
}

// IssueAPIKey handles POST /user/api-keys for the authenticated caller.
func (h *UserHandler) IssueAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}

	resp, err := h.svc.IssueAPIKey(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

// ListAPIKeys handles GET /user/api-keys for the authenticated caller.
func (h *UserHandler) ListAPIKeys(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	if userID == "" {
		writeDetail(w, http.StatusForbidden, "Not authenticated")
		return
	}

	keys, err := h.svc.ListAPIKeys(r.Context(), userID)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.APIKeyListResponse{APIKeys: keys})
}

func (h *UserHandler) decodeUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return nil, false
	}
	var user model.User
	if err := h.validator.Decode(validation.User, raw, &user); err != nil {
		handleServiceError(w, r, h.logger, err)
		return nil, false
	}
	return &user, true
}
