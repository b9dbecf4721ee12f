package auth

import (
	"context"
	"strings"

	"github.com/supplyline/api/internal/domain"
)

// Identity captures the authenticated principal resolved from an API token.
type Identity struct {
	UserID int64
	Email  string
	Type   domain.UserType
	Active bool
}

// IsShop reports whether the principal carries the shop capability.
func (i *Identity) IsShop() bool {
	return i != nil && i.Active && i.Type == domain.UserTypeShop
}

// IsAdmin reports whether the principal carries staff privileges.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Active && i.Type == domain.UserTypeAdmin
}

// FromUser builds an Identity from a persisted user row.
func FromUser(user domain.User) *Identity {
	return &Identity{
		UserID: user.ID,
		Email:  strings.TrimSpace(user.Email),
		Type:   user.Type,
		Active: user.Active,
	}
}

type contextKey string

const identityContextKey contextKey = "github.com/supplyline/api/internal/platform/auth/identity"

// WithIdentity stores the identity within the context for downstream handlers.
func WithIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext retrieves the identity previously stored in context.
func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	identity, ok := ctx.Value(identityContextKey).(*Identity)
	if !ok || identity == nil {
		return nil, false
	}
	return identity, true
}
