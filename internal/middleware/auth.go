package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/docextract/docextract/internal/auth"
	"github.com/docextract/docextract/internal/model"
)

// Authenticator resolves an API key to a user.
type Authenticator interface {
	Authenticate(ctx context.Context, apiKey string) (*model.User, *model.AuthContext, error)
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger        *slog.Logger
	Authenticator Authenticator
	// MinDuration pads every authentication attempt to at least this long.
	MinDuration time.Duration
}

// Auth returns a middleware that authenticates requests by API key.
// The key is read from the Authorization header, with or without a
// "Bearer " prefix. Every failure answers 403 with a detail message.
func Auth(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			pad := func() {
				if elapsed := time.Since(start); elapsed < cfg.MinDuration {
					time.Sleep(cfg.MinDuration - elapsed)
				}
			}

			key := extractAPIKey(r)
			_, authCtx, err := cfg.Authenticator.Authenticate(r.Context(), key)
			if err != nil {
				pad()
				if errors.Is(err, model.ErrForbidden) {
					cfg.Logger.Warn("authentication failed",
						slog.String("reason", err.Error()),
						slog.String("key_prefix", auth.DisplayPrefix(key)),
						slog.String("ip", r.RemoteAddr),
						slog.String("endpoint", r.Method+" "+r.URL.Path),
						slog.String("request_id", GetRequestID(r.Context())),
					)
					writeDetail(w, http.StatusForbidden, err.Error())
					return
				}
				cfg.Logger.Error("authentication error",
					slog.String("error", err.Error()),
					slog.String("request_id", GetRequestID(r.Context())),
				)
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}
			pad()

			cfg.Logger.Debug("authentication successful",
				slog.String("key_prefix", authCtx.KeyPrefix),
				slog.String("user_id", authCtx.UserID),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			ctx := auth.ContextWithAuth(r.Context(), authCtx)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// extractAPIKey reads the raw Authorization header, stripping an optional
// "Bearer " scheme.
func extractAPIKey(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return h
}
