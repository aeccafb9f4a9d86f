package resolver

import (
	"context"

	"auth-portal/internal/auth"
)

// Resolver determines which internal user an external identity belongs to.
// It is the only place where identity-to-user mapping lives.
type Resolver interface {
	Resolve(
		ctx context.Context,
		identity *auth.Identity,
	) (userID string, err error)
}
