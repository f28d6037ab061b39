package shared

import (
	"context"
	"time"
)

// Identity is the resolved actor for a request. Role always comes from the profile store.
type Identity struct {
	SubjectID string    `json:"id"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	IssuedAt  time.Time `json:"authenticatedAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Anonymous is the identity used when no credential was resolved.
func Anonymous() Identity {
	return Identity{Role: RoleGuest}
}

// Authenticated reports whether the identity carries a subject.
func (i Identity) Authenticated() bool {
	return i.SubjectID != ""
}

type identityContextKey struct{}

// ContextWithIdentity stores the resolved identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}
