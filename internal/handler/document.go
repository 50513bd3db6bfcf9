package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// ExtractionService converts and extracts uploaded documents.
type ExtractionService interface {
	Markdown(ctx context.Context, userID string, up service.Upload) (string, error)
	Extract(ctx context.Context, userID, projectID string, up service.Upload) (json.RawMessage, error)
}

// DocumentHandler serves /markdown and /extract.
type DocumentHandler struct {
	svc    ExtractionService
	logger *slog.Logger
}

// NewDocumentHandler creates a new DocumentHandler.
func NewDocumentHandler(svc ExtractionService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{svc: svc, logger: logger}
}

// Markdown handles POST /markdown. The result is text/plain unless the
// client accepts JSON, in which case it is a JSON string.
func (h *DocumentHandler) Markdown(w http.ResponseWriter, r *http.Request) {
	up, err := readUpload(r)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	text, err := h.svc.Markdown(r.Context(), auth.UserIDFromContext(r.Context()), up)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	if acceptsJSON(r) {
		writeJSON(w, http.StatusOK, text)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, text)
}

// Extract handles POST /extract?project_id=<id>.
func (h *DocumentHandler) Extract(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		handleServiceError(w, r, h.logger, fieldRequired("project_id"))
		return
	}

	up, err := readUpload(r)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	out, err := h.svc.Extract(r.Context(), auth.UserIDFromContext(r.Context()), projectID, up)
	if err != nil {
		handleServiceError(w, r, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// readUpload reads the multipart "file" part.
func readUpload(r *http.Request) (service.Upload, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return service.Upload{}, err
		}
		return service.Upload{}, fieldRequired("file")
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		return service.Upload{}, fieldRequired("file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return service.Upload{}, err
	}
	return service.Upload{Filename: hdr.Filename, Data: data}, nil
}

func acceptsJSON(r *http.Request) bool {
	for _, part := range strings.Split(r.Header.Get("Accept"), ",") {
		mt, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err == nil && mt == "application/json" {
			return true
		}
	}
	return false
}
