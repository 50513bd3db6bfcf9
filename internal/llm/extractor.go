package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/docextract/docextract/internal/model"
)

// Completer is the provider call the Extractor depends on.
type Completer interface {
	CompleteJSON(ctx context.Context, comp Completion) (json.RawMessage, error)
}

// Recorder observes completion calls.
type Recorder interface {
	RecordLLM(d time.Duration, err error)
}

// Plan is the provider-independent part of an extraction, built from a
// project before any document is converted.
type Plan struct {
	ProjectID string
	Schema    RecordSchema
	System    string
}

// Extractor fills project records from markdown.
type Extractor struct {
	completer Completer
	recorder  Recorder
	validate  bool
	log       *slog.Logger
}

// NewExtractor creates an Extractor. When validate is set, completions are
// checked against the record schema before being returned.
func NewExtractor(completer Completer, recorder Recorder, validate bool, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{completer: completer, recorder: recorder, validate: validate, log: logger}
}

// Plan builds the record schema and system prompt for p.
func (e *Extractor) Plan(p *model.Project) (*Plan, error) {
	schema, err := BuildRecordSchema(p.Fields)
	if err != nil {
		return nil, err
	}
	if n := len(schema.Properties()); n != len(p.Fields) {
		e.log.Debug("duplicate field names collapsed",
			"project_id", p.ID, "fields", len(p.Fields), "properties", n)
	}

	plan := &Plan{ProjectID: p.ID, Schema: schema, System: SystemPrompt(p.Fields)}
	e.log.Debug("extraction plan built",
		"project_id", p.ID,
		"manifest", FieldManifest(p.Fields),
	)
	return plan, nil
}

// Extract runs plan against markdown and returns the provider's JSON verbatim.
func (e *Extractor) Extract(ctx context.Context, plan *Plan, markdown string) (json.RawMessage, error) {
	start := time.Now()
	out, err := e.completer.CompleteJSON(ctx, Completion{
		System: plan.System,
		User:   markdown,
		Schema: plan.Schema,
	})
	if err == nil && e.validate {
		if vErr := ValidateJSON(plan.Schema, out); vErr != nil {
			err = fmt.Errorf("%w: %v", ErrProvider, vErr)
		}
	}
	if e.recorder != nil {
		e.recorder.RecordLLM(time.Since(start), err)
	}
	if err != nil {
		return nil, fmt.Errorf("extract project %s: %w", plan.ProjectID, err)
	}
	return out, nil
}
