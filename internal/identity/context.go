// Package identity carries the verified account identity through request contexts.
package identity

import (
	"context"

	"course-guard/internal/identity/domain"
)

type contextKey struct{ name string }

var identityKey = contextKey{"identity"}

// WithIdentity returns a context carrying id. A nil id leaves ctx unchanged.
func WithIdentity(ctx context.Context, id *domain.Identity) context.Context {
	if id == nil {
		return ctx
	}
	return context.WithValue(ctx, identityKey, id)
}

// FromContext returns the identity from context and true if set; otherwise nil, false.
func FromContext(ctx context.Context) (*domain.Identity, bool) {
	id, ok := ctx.Value(identityKey).(*domain.Identity)
	return id, ok && id != nil
}

// AccountID returns the account id from context and true if an identity is set; otherwise "", false.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	return id.AccountID, true
}
