package context

import (
	"context"
)

// UserContext identifies the caller on whose behalf an ID is issued.
// Populated by the HTTP layer from gateway headers; used for the audit trail.
type UserContext struct {
	UserID string
	Email  string
	Source string // originating system, e.g. "crm-web", "backfill"
}

type userContextKey struct{}

// WithUser adds UserContext to context.
func WithUser(ctx context.Context, user *UserContext) context.Context {
	return context.WithValue(ctx, userContextKey{}, user)
}

// GetUser returns UserContext from context.
func GetUser(ctx context.Context) *UserContext {
	if v, ok := ctx.Value(userContextKey{}).(*UserContext); ok {
		return v
	}
	return nil
}

// GetUserID returns user ID from context or empty string.
func GetUserID(ctx context.Context) string {
	if u := GetUser(ctx); u != nil {
		return u.UserID
	}
	return ""
}
