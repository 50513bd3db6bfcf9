package auth

import (
	"context"

	"github.com/docextract/docextract/internal/model"
)

type authKey struct{}

// ContextWithAuth returns ctx carrying the caller resolved by the auth
// middleware.
func ContextWithAuth(ctx context.Context, ac *model.AuthContext) context.Context {
	return context.WithValue(ctx, authKey{}, ac)
}

// AuthFromContext returns the caller stored by ContextWithAuth, or nil on
// routes mounted without the auth middleware.
func AuthFromContext(ctx context.Context) *model.AuthContext {
	ac, _ := ctx.Value(authKey{}).(*model.AuthContext)
	return ac
}

// UserIDFromContext returns the caller's user_id, or "" when the request
// is anonymous. The document endpoints pass "" through to disable credit
// metering.
func UserIDFromContext(ctx context.Context) string {
	if ac := AuthFromContext(ctx); ac != nil {
		return ac.UserID
	}
	return ""
}
