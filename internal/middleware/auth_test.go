package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/model"
)

type stubAuthenticator struct {
	keys map[string]*model.User
	err  error
	seen string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, key string) (*model.User, *model.AuthContext, error) {
	s.seen = key
	if s.err != nil {
		return nil, nil, s.err
	}
	if key == "" {
		return nil, nil, model.NewDetailError(model.ErrForbidden, "Not authenticated")
	}
	u, ok := s.keys[key]
	if !ok {
		return nil, nil, model.NewDetailError(model.ErrForbidden, "Invalid API key")
	}
	return u, &model.AuthContext{UserID: u.UserID, User: u}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuth(t *testing.T) {
	stub := &stubAuthenticator{keys: map[string]*model.User{
		"good-key": {UserID: "u1"},
	}}

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantDetail string
		wantKey    string
	}{
		{"raw key", "good-key", http.StatusOK, "", "good-key"},
		{"bearer key", "Bearer good-key", http.StatusOK, "", "good-key"},
		{"lowercase bearer", "bearer good-key", http.StatusOK, "", "good-key"},
		{"missing header", "", http.StatusForbidden, "Not authenticated", ""},
		{"unknown key", "nope", http.StatusForbidden, "Invalid API key", "nope"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser string
			handler := Auth(AuthConfig{Logger: discardLogger(), Authenticator: stub})(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					gotUser = auth.UserIDFromContext(r.Context())
				}),
			)

			req := httptest.NewRequest(http.MethodGet, "/user/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if stub.seen != tt.wantKey {
				t.Errorf("authenticator saw %q, want %q", stub.seen, tt.wantKey)
			}
			if tt.wantStatus == http.StatusOK {
				if gotUser != "u1" {
					t.Errorf("user in context = %q, want u1", gotUser)
				}
				return
			}

			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["detail"] != tt.wantDetail {
				t.Errorf("detail = %q, want %q", body["detail"], tt.wantDetail)
			}
		})
	}
}

func TestAuth_StoreError(t *testing.T) {
	stub := &stubAuthenticator{err: errors.New("db down")}
	handler := Auth(AuthConfig{Logger: discardLogger(), Authenticator: stub})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Error("handler should not run")
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/user/", nil)
	req.Header.Set("Authorization", "k")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}
