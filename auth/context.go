package auth

import (
	"context"

	"github.com/ontoverse/marketplace/identity"
)

// Context key type to avoid collisions
type contextKey string

// identityKey is the context key for the caller identity
const identityKey contextKey = "identity"

// WithIdentity attaches a caller identity to the context. The identity is
// scoped to a single request and must never outlive it.
func WithIdentity(ctx context.Context, id identity.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// FromContext retrieves the caller identity set by the boundary. The second
// return is false when the request never passed an auth boundary.
func FromContext(ctx context.Context) (identity.Identity, bool) {
	id, ok := ctx.Value(identityKey).(identity.Identity)
	return id, ok
}
