package auth

import (
	"context"
	"net/http"

	"github.com/haimhm/datacatalog/catalog/schema"
)

const GuestRole = "guest"

// Identity is the caller of a request as resolved by the session middleware.
type Identity struct {
	UserId   uint
	Username string
	Role     string
}

func Guest() Identity {
	return Identity{Role: GuestRole}
}

func IdentityFromUser(user schema.User) Identity {
	return Identity{UserId: user.Id, Username: user.Username, Role: user.Role}
}

func (i Identity) IsAuthenticated() bool {
	return i.UserId != 0
}

func (i Identity) IsAdmin() bool {
	return i.IsAuthenticated() && i.Role == schema.AdminRole
}

type requestContextKey string

const identityRequestContextKey requestContextKey = "identity"

func WithIdentity(ctx context.Context, identity Identity) context.Context {
	return context.WithValue(ctx, identityRequestContextKey, identity)
}

// IdentityFromContext returns the identity attached by the session middleware, or the
// guest identity if there is none.
func IdentityFromContext(r *http.Request) Identity {
	identity, ok := r.Context().Value(identityRequestContextKey).(Identity)
	if !ok {
		return Guest()
	}
	return identity
}
