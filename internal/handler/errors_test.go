package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docextract/docextract/internal/model"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", model.NewDetailError(model.ErrNotFound, "Project ID not found"), http.StatusNotFound},
		{"unsupported type", &model.UnsupportedTypeError{Kind: model.KindData, Value: "date"}, http.StatusNotImplemented},
		{"forbidden", model.NewDetailError(model.ErrForbidden, "Invalid API key"), http.StatusForbidden},
		{"conflict", model.ErrConflict, http.StatusConflict},
		{"credits", model.ErrInsufficientCredits, http.StatusPaymentRequired},
		{"invalid input", fmt.Errorf("wrap: %w", model.ErrInvalidInput), http.StatusUnprocessableEntity},
		{"too large", &http.MaxBytesError{Limit: 10}, http.StatusRequestEntityTooLarge},
		{"upstream", fmt.Errorf("ocr: %w", model.ErrUpstream), http.StatusBadGateway},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errorStatus(tt.err))
		})
	}
}
