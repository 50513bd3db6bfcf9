// Package validation checks request bodies against embedded JSON Schemas.
package validation

import (
	"bytes"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/docextract/docextract/internal/model"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Schema names.
const (
	Project = "project"
	User    = "user"
)

// Validator holds the compiled request schemas.
type Validator struct {
	schemas map[string]*jsonschema.Schema
}

// New compiles every embedded schema.
func New() (*Validator, error) {
	compiler := jsonschema.NewCompiler()
	compiler.AssertFormat = true

	v := &Validator{schemas: make(map[string]*jsonschema.Schema)}
	for _, name := range []string{Project, User} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", name, err)
		}
		url := name + ".json"
		if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", name, err)
		}
		s, err := compiler.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// MustNew is New for package-level wiring; it panics on a broken embedded schema.
func MustNew() *Validator {
	v, err := New()
	if err != nil {
		panic(err)
	}
	return v
}

// Decode validates raw against the named schema and unmarshals it into dst.
// Failures are *model.DetailError wrapping model.ErrInvalidInput.
func (v *Validator) Decode(name string, raw []byte, dst any) error {
	s, ok := v.schemas[name]
	if !ok {
		return fmt.Errorf("unknown schema %q", name)
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return model.NewDetailError(model.ErrInvalidInput, "Invalid JSON body")
	}
	if err := s.Validate(doc); err != nil {
		return model.NewDetailError(model.ErrInvalidInput, describe(err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return model.NewDetailError(model.ErrInvalidInput, "Invalid JSON body")
	}
	return nil
}

// describe reduces a validation error to its first leaf cause.
func describe(err error) string {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return err.Error()
	}
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return "body: " + ve.Message
	}
	return "body." + strings.ReplaceAll(loc, "/", ".") + ": " + ve.Message
}
