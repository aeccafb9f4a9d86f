package google

import (
	"context"
	"errors"
	"fmt"

	"auth-portal/internal/auth/provider"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const (
	providerName = "google"
	issuer       = "https://accounts.google.com"
)

// New discovers Google's OIDC configuration and returns a provider.
func New(
	ctx context.Context,
	clientID string,
	clientSecret string,
	redirectURL string,
) (*provider.OIDC, error) {
	if clientID == "" || clientSecret == "" || redirectURL == "" {
		return nil, errors.New("google oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init google oidc provider: %w", err)
	}

	return provider.NewOIDC(providerName, oidcProvider, &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint:     oidcProvider.Endpoint(),
		Scopes: []string{
			oidc.ScopeOpenID,
			"profile",
			"email",
		},
	}), nil
}
