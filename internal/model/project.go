// Package model defines domain entities for the application.
package model

import "time"

// DataType is the declared type of an extracted field.
type DataType string

// Supported field data types. DataTypeStr is the short spelling accepted
// for backwards compatibility with stored projects.
const (
	DataTypeString DataType = "string"
	DataTypeStr    DataType = "str"
	DataTypeInt    DataType = "int"
	DataTypeFloat  DataType = "float"
	DataTypeBool   DataType = "bool"
)

// Normalize maps aliases onto their canonical data type.
// It returns false for types outside the closed set.
func (d DataType) Normalize() (DataType, bool) {
	switch d {
	case DataTypeString, DataTypeStr:
		return DataTypeString, true
	case DataTypeInt, DataTypeFloat, DataTypeBool:
		return d, true
	default:
		return d, false
	}
}

// FieldSpec describes one field to extract from a document.
type FieldSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	DataType    DataType `json:"data_type"`
}

// Project is a named, ordered set of field specifications.
type Project struct {
	ID        string      `json:"-"`
	Name      *string     `json:"name"`
	Fields    []FieldSpec `json:"fields"`
	CreatedAt time.Time   `json:"-"`
}
