// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import "github.com/docextract/docextract/internal/model"

// ErrorResponse is the error envelope used by every endpoint.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ProjectIDResponse is returned by POST /projectID.
type ProjectIDResponse struct {
	ProjectID string `json:"project_id"`
}

// ProjectRequest is the body of POST /projectID.
type ProjectRequest struct {
	Name   *string           `json:"name"`
	Fields []model.FieldSpec `json:"fields"`
}

// ProjectResponse is returned by GET /projectID. Storage ids are omitted.
type ProjectResponse struct {
	Name   *string           `json:"name"`
	Fields []model.FieldSpec `json:"fields"`
}

// ToProjectResponse converts a project to its API shape.
func ToProjectResponse(p *model.Project) ProjectResponse {
	fields := p.Fields
	if fields == nil {
		fields = []model.FieldSpec{}
	}
	return ProjectResponse{Name: p.Name, Fields: fields}
}

// APIKeyListResponse is returned by GET /user/api-keys.
type APIKeyListResponse struct {
	APIKeys []*model.APIKey `json:"api_keys"`
}
