package api

import (
	"context"
	"errors"
)

// userIDContextKey is the context key for the authenticated identity.
type userIDContextKey struct{}

// ErrNoUserInContext indicates no authenticated identity in the context.
var ErrNoUserInContext = errors.New("no user in context")

// WithUserID returns a new context with the identity attached.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey{}, userID)
}

// UserIDFromContext extracts the authenticated identity from the context.
func UserIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(userIDContextKey{}).(string)
	if !ok || id == "" {
		return "", ErrNoUserInContext
	}
	return id, nil
}

// MustUserIDFromContext extracts the identity or panics.
// Use only when middleware guarantees its presence.
func MustUserIDFromContext(ctx context.Context) string {
	id, err := UserIDFromContext(ctx)
	if err != nil {
		panic("user not in context: middleware misconfiguration")
	}
	return id
}
