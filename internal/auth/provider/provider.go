package provider

import (
	"context"

	"auth-portal/internal/auth"
)

// OAuthProvider is an external identity provider offered by the sign-in
// widget. Implementations return identity facts only; users, links and
// sessions are created by the resolver and the handler.
type OAuthProvider interface {
	// Name is the registry key and the :provider route segment.
	Name() string

	// AuthCodeURL returns the authorization URL for the browser redirect,
	// carrying the S256 challenge of codeVerifier. The caller owns the state
	// and the verifier.
	AuthCodeURL(state string, codeVerifier string) string

	// ExchangeCode redeems an authorization code using the PKCE verifier.
	ExchangeCode(
		ctx context.Context,
		code string,
		codeVerifier string,
	) (*auth.Identity, error)
}

var _ OAuthProvider = (*OIDC)(nil)
