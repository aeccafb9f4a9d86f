package app

import (
	"context"
	"net/http"

	"auth-portal/internal/auth/credentials"
	"auth-portal/internal/auth/handler"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/auth/provider/google"
	"auth-portal/internal/auth/provider/keycloak"
	"auth-portal/internal/auth/resolver"
	"auth-portal/internal/config"
	"auth-portal/internal/logger"
	"auth-portal/internal/middleware"
	"auth-portal/internal/session"

	"github.com/gin-gonic/gin"
)

// Deps are the collaborators the router needs. Tests build them directly.
type Deps struct {
	Sessions    session.Store
	Providers   *provider.Registry
	Resolver    resolver.Resolver
	Credentials handler.CredentialService
}

func setupHTTP(ctx context.Context, cfg config.Config) (*gin.Engine, func() error, error) {
	infra, err := setupInfra(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	providers, err := setupProviders(ctx, cfg)
	if err != nil {
		_ = infra.Close()
		return nil, nil, err
	}

	router := NewRouter(cfg, Deps{
		Sessions:    infra.Sessions,
		Providers:   providers,
		Resolver:    resolver.NewDBResolver(infra.DB),
		Credentials: credentials.NewService(infra.DB),
	})

	return router, infra.Close, nil
}

// setupProviders registers every OAuth provider whose settings are present.
func setupProviders(ctx context.Context, cfg config.Config) (*provider.Registry, error) {
	var list []provider.OAuthProvider

	if cfg.GoogleEnabled() {
		p, err := google.New(ctx, cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	if cfg.KeycloakEnabled() {
		p, err := keycloak.New(ctx, keycloak.Config{
			Issuer:        cfg.KeycloakIssuer,
			ClientID:      cfg.KeycloakClientID,
			ClientSecret:  cfg.KeycloakClientSecret,
			RedirectURL:   cfg.KeycloakRedirectURL,
			PublicBaseURL: cfg.KeycloakPublicBaseURL,
			Realm:         cfg.KeycloakRealm,
		})
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}

	registry := provider.NewRegistry(list...)
	logger.Info("oauth providers registered", map[string]any{
		"providers": registry.Names(),
	})
	return registry, nil
}

// NewRouter wires middleware and routes.
func NewRouter(cfg config.Config, deps Deps) *gin.Engine {
	authMiddleware := middleware.NewAuthMiddleware(deps.Sessions, cfg.SessionIdleTTL)

	authHandler := handler.NewHandler(
		deps.Providers,
		deps.Sessions,
		deps.Resolver,
		deps.Credentials,
		handler.Options{
			CookieSecure: cfg.CookieSecure,
			IdleTTL:      cfg.SessionIdleTTL,
			AbsoluteTTL:  cfg.SessionAbsoluteTTL,
		},
	)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ----------------------------
	// Public routes
	// ----------------------------

	public := router.Group("/")
	public.Use(middleware.CSRF(middleware.CSRFConfig{Secure: cfg.CookieSecure}))
	public.Use(middleware.ProvideState(authMiddleware))
	authHandler.RegisterRoutes(public)

	// ----------------------------
	// Protected API routes
	// ----------------------------

	api := router.Group("/api")
	api.Use(middleware.GinRequireAuth(authMiddleware))

	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id": c.GetString("userID"),
		})
	})

	for _, route := range router.Routes() {
		logger.Info("route registered", map[string]any{
			"method": route.Method,
			"path":   route.Path,
		})
	}

	return router
}
