package handler

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/service"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeProjects struct {
	created []model.FieldSpec
	name    *string
	project *model.Project
	deleted string
	id      string
	err     error
}

func (f *fakeProjects) Create(_ context.Context, name *string, fields []model.FieldSpec) (string, error) {
	f.name, f.created = name, fields
	return f.id, f.err
}

func (f *fakeProjects) Get(_ context.Context, id string) (*model.Project, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.project, nil
}

func (f *fakeProjects) Delete(_ context.Context, id string) error {
	f.deleted = id
	return f.err
}

type fakeUsers struct {
	created   *model.User
	updated   *model.User
	updatedID string
	deletedID string
	issued    string
	keys      []*model.APIKey
	listedFor string
	err       error
}

func (f *fakeUsers) Create(_ context.Context, u *model.User) error {
	f.created = u
	return f.err
}

func (f *fakeUsers) Update(_ context.Context, id string, u *model.User) error {
	f.updatedID, f.updated = id, u
	return f.err
}

func (f *fakeUsers) Delete(_ context.Context, id string) error {
	f.deletedID = id
	return f.err
}

func (f *fakeUsers) IssueAPIKey(_ context.Context, id string) (*model.APIKeyCreateResponse, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.issued = id
	return &model.APIKeyCreateResponse{APIKey: "dk_test_abc123_secret", KeyPrefix: "dk_test_abc123", UserID: id}, nil
}

func (f *fakeUsers) ListAPIKeys(_ context.Context, id string) ([]*model.APIKey, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.listedFor = id
	return f.keys, nil
}

type fakeExtraction struct {
	markdown  string
	record    json.RawMessage
	err       error
	upload    service.Upload
	userID    string
	projectID string
}

func (f *fakeExtraction) Markdown(_ context.Context, userID string, up service.Upload) (string, error) {
	f.userID, f.upload = userID, up
	return f.markdown, f.err
}

func (f *fakeExtraction) Extract(_ context.Context, userID, projectID string, up service.Upload) (json.RawMessage, error) {
	f.userID, f.projectID, f.upload = userID, projectID, up
	return f.record, f.err
}
