package provider

import (
	"context"
	"errors"
	"fmt"

	"auth-portal/internal/auth"
	"auth-portal/internal/logger"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDC is an authorization-code + PKCE client for an OpenID Connect
// provider. Provider packages configure it; it returns identity facts only.
type OIDC struct {
	name        string
	oauthConfig *oauth2.Config
	verifier    *oidc.IDTokenVerifier
}

// NewOIDC wires an OIDC client from a discovered provider.
func NewOIDC(name string, p *oidc.Provider, cfg *oauth2.Config) *OIDC {
	return &OIDC{
		name:        name,
		oauthConfig: cfg,
		verifier:    p.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
	}
}

// Name returns the provider identifier used by the registry.
func (o *OIDC) Name() string {
	return o.name
}

// AuthCodeURL builds the authorization URL with the S256 challenge of
// codeVerifier.
func (o *OIDC) AuthCodeURL(state string, codeVerifier string) string {
	return o.oauthConfig.AuthCodeURL(
		state,
		oauth2.AccessTypeOnline,
		oauth2.S256ChallengeOption(codeVerifier),
	)
}

// ExchangeCode redeems code, verifies the id_token and returns the identity.
// It never creates users or sessions.
func (o *OIDC) ExchangeCode(
	ctx context.Context,
	code string,
	codeVerifier string,
) (*auth.Identity, error) {
	token, err := o.oauthConfig.Exchange(
		ctx,
		code,
		oauth2.VerifierOption(codeVerifier),
	)
	if err != nil {
		return nil, fmt.Errorf("%s token exchange failed: %w", o.name, err)
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok || rawIDToken == "" {
		return nil, fmt.Errorf("%s did not return id_token", o.name)
	}

	idToken, err := o.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("%s id_token verification failed: %w", o.name, err)
	}

	var claims struct {
		Subject       string `json:"sub"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("%s id_token claims parse failed: %w", o.name, err)
	}
	if claims.Subject == "" || claims.Email == "" {
		return nil, errors.New(o.name + " id_token missing required claims")
	}

	logger.Info("oidc verified", map[string]any{
		"provider":       o.name,
		"issuer":         idToken.Issuer,
		"email_verified": claims.EmailVerified,
		"expiry_unix":    idToken.Expiry.Unix(),
	})

	return &auth.Identity{
		Provider:       o.name,
		ProviderUserID: claims.Subject,
		Email:          claims.Email,
		EmailVerified:  claims.EmailVerified,
	}, nil
}
