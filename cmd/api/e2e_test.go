//go:build e2e

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/model"
	"github.com/docextract/docextract/internal/repository"
	"github.com/docextract/docextract/internal/service"
)

// TestE2ESmoke drives a running server through the user, key and project
// lifecycle. It needs DOCEXTRACT_BASE_URL (default localhost:8080) and the
// server's DATABASE_URL and API_KEY_PEPPER.
func TestE2ESmoke(t *testing.T) {
	baseURL := envOrDefault("DOCEXTRACT_BASE_URL", "http://localhost:8080")
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Fatalf("DATABASE_URL is required for e2e tests")
	}

	userID := fmt.Sprintf("e2e-%d", time.Now().UnixNano())
	bootstrapKey := bootstrapUserKey(t, dbURL, userID)

	var me model.User
	if status := doJSON(t, http.MethodGet, baseURL+"/user/", bootstrapKey, nil, &me); status != http.StatusOK {
		t.Fatalf("expected 200 from GET /user/, got %d", status)
	}
	if me.UserID != userID {
		t.Fatalf("expected user %q, got %q", userID, me.UserID)
	}

	var issued model.APIKeyCreateResponse
	if status := doJSON(t, http.MethodPost, baseURL+"/user/api-keys", bootstrapKey, nil, &issued); status != http.StatusCreated {
		t.Fatalf("expected 201 from key issue, got %d", status)
	}
	if issued.APIKey == "" {
		t.Fatalf("key issue response missing api_key")
	}

	payload := map[string]any{
		"name": "e2e",
		"fields": []map[string]string{
			{"name": "total", "description": "Invoice total", "data_type": "float"},
		},
	}
	var created struct {
		ProjectID string `json:"project_id"`
	}
	if status := doJSON(t, http.MethodPost, baseURL+"/projectID", "", payload, &created); status != http.StatusOK {
		t.Fatalf("expected 200 from project create, got %d", status)
	}

	var project model.Project
	if status := doJSON(t, http.MethodGet, baseURL+"/projectID?project_id="+created.ProjectID, "", nil, &project); status != http.StatusOK {
		t.Fatalf("expected 200 from project get, got %d", status)
	}
	if len(project.Fields) != 1 || project.Fields[0].Name != "total" {
		t.Fatalf("unexpected project fields: %+v", project.Fields)
	}

	if status := doJSON(t, http.MethodDelete, baseURL+"/projectID/"+created.ProjectID, "", nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from project delete, got %d", status)
	}
	if status := doJSON(t, http.MethodGet, baseURL+"/projectID?project_id="+created.ProjectID, "", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}

	if status := doJSON(t, http.MethodDelete, baseURL+"/user/"+userID, "", nil, nil); status != http.StatusOK {
		t.Fatalf("expected 200 from user delete, got %d", status)
	}
	if status := doJSON(t, http.MethodGet, baseURL+"/user/", issued.APIKey, nil, nil); status != http.StatusForbidden {
		t.Fatalf("expected 403 for a deleted user's key, got %d", status)
	}
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func bootstrapUserKey(t *testing.T, dbURL, userID string) string {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo, err := repository.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("connect db: %v", err)
	}
	defer repo.Close()

	svc := service.NewUserService(repo, auth.NewDigester(os.Getenv("API_KEY_PEPPER")), auth.EnvTest, nil, nil)
	user := &model.User{UserID: userID, Name: "e2e", Email: "e2e@example.com", APICredits: 5}
	if err := svc.Create(ctx, user); err != nil {
		t.Fatalf("create user: %v", err)
	}
	resp, err := svc.IssueAPIKey(ctx, userID)
	if err != nil {
		t.Fatalf("issue api key: %v", err)
	}
	return resp.APIKey
}

func doJSON(t *testing.T, method, url, apiKey string, payload any, out any) int {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s: %v", method, url, err)
	}
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp.StatusCode
}
