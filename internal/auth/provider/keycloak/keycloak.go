package keycloak

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"auth-portal/internal/auth/provider"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

const providerName = "keycloak"

// Config holds the Keycloak client settings.
type Config struct {
	// Issuer is the realm issuer reachable from this service, e.g.
	// http://keycloak:8080/realms/auth-service
	Issuer   string
	ClientID string
	// ClientSecret is empty for public clients.
	ClientSecret string
	RedirectURL  string
	// PublicBaseURL is the Keycloak origin browsers can reach. It may differ
	// from the issuer host inside container networks.
	PublicBaseURL string
	Realm         string
}

// New discovers the realm configuration and returns a provider whose
// browser-facing authorization URL points at PublicBaseURL.
func New(ctx context.Context, cfg Config) (*provider.OIDC, error) {
	if cfg.Issuer == "" || cfg.ClientID == "" || cfg.RedirectURL == "" || cfg.PublicBaseURL == "" || cfg.Realm == "" {
		return nil, errors.New("keycloak oauth config missing required fields")
	}

	oidcProvider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to init keycloak oidc provider: %w", err)
	}

	return provider.NewOIDC(providerName, oidcProvider, oauthConfig(cfg, oidcProvider.Endpoint())), nil
}

// oauthConfig builds the client settings on top of the discovered endpoint,
// swapping in the browser-facing authorization URL.
func oauthConfig(cfg Config, ep oauth2.Endpoint) *oauth2.Config {
	ep.AuthURL = AuthURL(cfg.PublicBaseURL, cfg.Realm)
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Endpoint:     ep,
		Scopes: []string{
			oidc.ScopeOpenID,
			"email",
			"profile",
		},
	}
}

// AuthURL is the browser-facing authorization endpoint of realm.
func AuthURL(publicBaseURL, realm string) string {
	return strings.TrimRight(publicBaseURL, "/") + "/realms/" + realm + "/protocol/openid-connect/auth"
}
