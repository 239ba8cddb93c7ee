package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the fields of a backend-issued access token that this service reads.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`

	jwt.RegisteredClaims
}

// Identity is who a request (or a background preload job) acts for.
type Identity struct {
	UserID      string
	AccessToken string
}

func (i Identity) IsZero() bool {
	return i.UserID == "" && i.AccessToken == ""
}

type identityCtxKey struct{}

// WithIdentity returns a copy of ctx carrying id. Data sources read it to
// resolve the current user.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityCtxKey{}, id)
}

func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityCtxKey{}).(Identity)
	if !ok || id.IsZero() {
		return Identity{}, false
	}
	return id, true
}
