// Package tenant carries the authenticated caller's identity through request
// contexts.
package tenant

import (
	"context"

	"github.com/google/uuid"
)

// Identity is what the verified bearer token tells us about the caller. The
// raw token is kept so user-scoped calls to the auth provider can be made on
// the caller's behalf.
type Identity struct {
	UserID   uuid.UUID
	Email    string
	TenantID uuid.UUID
	Role     string
	Token    string
}

// ServiceRole reports whether the caller authenticated with the privileged
// service key rather than an end-user token.
func (i *Identity) ServiceRole() bool {
	return i != nil && i.Role == "service_role"
}

type contextKey string

const identityKey contextKey = "identity"

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) *Identity {
	id, _ := ctx.Value(identityKey).(*Identity)
	return id
}

// IDFromContext returns the caller's tenant id, or uuid.Nil when the request
// is unauthenticated or service-scoped.
func IDFromContext(ctx context.Context) uuid.UUID {
	if id := IdentityFromContext(ctx); id != nil {
		return id.TenantID
	}
	return uuid.Nil
}
