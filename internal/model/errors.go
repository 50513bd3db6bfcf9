package model

import (
	"errors"
	"fmt"
)

// Domain error taxonomy. Handlers translate these to HTTP status codes.
var (
	ErrNotFound            = errors.New("not found")
	ErrUnsupportedType     = errors.New("unsupported type")
	ErrForbidden           = errors.New("forbidden")
	ErrConflict            = errors.New("conflict")
	ErrInsufficientCredits = errors.New("insufficient api credits")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstream            = errors.New("upstream provider failure")
)

// Kinds of UnsupportedTypeError.
const (
	KindDocument = "document"
	KindData     = "data"
)

// UnsupportedTypeError reports an input type the service cannot handle:
// either a document extension or a field data type.
type UnsupportedTypeError struct {
	Kind  string
	Value string
}

func (e *UnsupportedTypeError) Error() string {
	if e.Kind == KindData {
		return fmt.Sprintf("Invalid data type %s", e.Value)
	}
	return fmt.Sprintf("%s is not a supported document type.", e.Value)
}

// Is makes errors.Is(err, ErrUnsupportedType) hold for any UnsupportedTypeError.
func (e *UnsupportedTypeError) Is(target error) bool {
	return target == ErrUnsupportedType
}

// DetailError carries a client-facing message alongside a taxonomy error.
type DetailError struct {
	Err    error
	Detail string
}

// NewDetailError wraps err with a message suitable for the response body.
func NewDetailError(err error, detail string) *DetailError {
	return &DetailError{Err: err, Detail: detail}
}

func (e *DetailError) Error() string {
	return e.Detail
}

func (e *DetailError) Unwrap() error {
	return e.Err
}
