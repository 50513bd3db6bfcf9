// Package llm builds per-project record schemas and asks an OpenAI-compatible
// chat completion API to fill them from document markdown.
package llm

import (
	"strings"

	"github.com/docextract/docextract/internal/model"
)

// RecordName is the title given to generated record schemas.
const RecordName = "DynamicModel"

// promptPrefix opens the system instruction; the field manifest follows it.
const promptPrefix = "Extract the following fields in JSON format (Leave empty for null values) " +
	"based on the Markdown data given by the user: "

// jsonType maps a canonical data type to its JSON Schema primitive.
func jsonType(d model.DataType) string {
	switch d {
	case model.DataTypeInt:
		return "integer"
	case model.DataTypeFloat:
		return "number"
	case model.DataTypeBool:
		return "boolean"
	default:
		return "string"
	}
}

// RecordSchema is a JSON Schema object for one extraction record.
type RecordSchema map[string]any

// Properties returns the property names in declaration order, duplicates removed.
func (s RecordSchema) Properties() []string {
	names, _ := s["required"].([]string)
	return names
}

// BuildRecordSchema returns an object schema with one nullable property per
// field. Every property is required so the model reports absent values as
// null. A field with an unknown data type fails the whole build.
// When names repeat, the last declaration decides the type.
func BuildRecordSchema(fields []model.FieldSpec) (RecordSchema, error) {
	props := make(map[string]any, len(fields))
	required := make([]string, 0, len(fields))

	for _, f := range fields {
		dt, ok := f.DataType.Normalize()
		if !ok {
			return nil, &model.UnsupportedTypeError{Kind: model.KindData, Value: string(f.DataType)}
		}
		if _, seen := props[f.Name]; !seen {
			required = append(required, f.Name)
		}
		props[f.Name] = map[string]any{
			"type":        []string{jsonType(dt), "null"},
			"description": f.Description,
		}
	}

	return RecordSchema{
		"title":                RecordName,
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}, nil
}

// FieldManifest renders "name (description)" for every field, comma separated,
// in declaration order.
func FieldManifest(fields []model.FieldSpec) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " (" + f.Description + ")"
	}
	return strings.Join(parts, ", ")
}

// SystemPrompt is the instruction sent ahead of the document text.
func SystemPrompt(fields []model.FieldSpec) string {
	return promptPrefix + FieldManifest(fields)
}
