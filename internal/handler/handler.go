// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/docextract/docextract/internal/handler/dto"
	"github.com/docextract/docextract/internal/model"
)

// Version is reported by the root endpoint.
const Version = "0.1.0"

// Handler serves the root and fallback routes.
type Handler struct{}

// New creates a new Handler instance.
func New() *Handler {
	return &Handler{}
}

// Hello is a simple info endpoint.
// GET /
func (h *Handler) Hello(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "docextract",
		"version": Version,
	})
}

// NotFound handles 404 responses.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusNotFound, "Not Found")
}

// MethodNotAllowed handles 405 responses.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// writeDetail writes {"detail": detail}.
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, dto.ErrorResponse{Detail: detail})
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrUnsupportedType):
		return http.StatusNotImplemented
	case errors.Is(err, model.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, model.ErrInsufficientCredits):
		return http.StatusPaymentRequired
	case errors.Is(err, model.ErrInvalidInput):
		return http.StatusUnprocessableEntity
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrUpstream):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes the error response for err. Taxonomy errors
// carry their own client message; everything else is logged and masked.
func handleServiceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status := errorStatus(err)
	switch status {
	case http.StatusBadGateway:
		logger.Error("upstream_error", "error", err, "path", r.URL.Path)
		writeDetail(w, status, "Upstream provider error")
	case http.StatusRequestEntityTooLarge:
		writeDetail(w, status, "Request body too large")
	case http.StatusInternalServerError:
		logger.Error("internal_error", "error", err, "path", r.URL.Path)
		writeDetail(w, status, "Internal Server Error")
	default:
		writeDetail(w, status, err.Error())
	}
}

// fieldRequired mirrors the validation message for a missing parameter.
func fieldRequired(name string) error {
	return model.NewDetailError(model.ErrInvalidInput, "Field required: "+name)
}
