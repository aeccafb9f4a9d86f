package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"auth-portal/internal/auth/authstate"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/auth/resolver"
	"auth-portal/internal/authpage"
	"auth-portal/internal/logger"
	"auth-portal/internal/middleware"
	"auth-portal/internal/session"

	"github.com/a-h/templ"
	"github.com/gin-gonic/gin"
)

// CredentialService verifies and registers email/password credentials.
type CredentialService interface {
	Register(ctx context.Context, email, password string) (userID string, err error)
	Authenticate(ctx context.Context, email, password string) (userID string, err error)
}

type Options struct {
	// CookieSecure marks session, state and PKCE cookies Secure.
	CookieSecure bool
	IdleTTL      time.Duration
	AbsoluteTTL  time.Duration
}

type Handler struct {
	providers    *provider.Registry
	sessionStore session.Store
	resolver     resolver.Resolver
	credentials  CredentialService
	cookies      session.CookieOptions
	idleTTL      time.Duration
	absoluteTTL  time.Duration
	now          func() time.Time
}

func NewHandler(
	registry *provider.Registry,
	sessionStore session.Store,
	resolver resolver.Resolver,
	credentials CredentialService,
	opts Options,
) *Handler {
	return &Handler{
		providers:    registry,
		sessionStore: sessionStore,
		resolver:     resolver,
		credentials:  credentials,
		cookies:      session.DefaultCookieOptions(opts.CookieSecure),
		idleTTL:      opts.IdleTTL,
		absoluteTTL:  opts.AbsoluteTTL,
		now:          time.Now,
	}
}

// RegisterRoutes mounts the authentication page at both prefixes and the
// flows its widgets post to. The caller must install middleware.CSRF and
// middleware.ProvideState in front of these routes.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET(authpage.SignInPath, h.page)
	r.GET(authpage.SignInPath+"/*step", h.page)
	r.GET(authpage.SignUpPath, h.page)
	r.GET(authpage.SignUpPath+"/*step", h.page)

	r.POST(authpage.SignInPath, h.signInIdentifier)
	r.POST(authpage.SignInPath+"/"+string(authpage.StepFactorOne), h.signInPassword)
	r.POST(authpage.SignUpPath, h.signUp)

	r.GET("/oauth/login/:provider", h.login)
	r.GET("/oauth/callback/:provider", h.callback)
	r.POST("/auth/logout", h.Logout)
}

func (h *Handler) page(c *gin.Context) {
	h.renderPage(c, http.StatusOK, authpage.Route{
		Path:  c.Request.URL.Path,
		Email: c.Query("email"),
	})
}

// renderPage renders the authentication page for the state attached by the
// session middleware. A missing state is a wiring error, answered with 500.
func (h *Handler) renderPage(c *gin.Context, status int, rt authpage.Route) {
	state, err := authstate.FromContext(c.Request.Context())
	if err != nil {
		logger.Error("authentication page served without auth context", map[string]any{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}

	if authstate.IsSignedIn(state) {
		status = http.StatusOK
	}
	rt.Providers = h.providers.Names()
	rt.CSRFToken = middleware.CSRFTokenFromContext(c.Request.Context())

	c.Header("Cache-Control", "no-store")
	templ.Handler(
		authpage.Document(authpage.Build(state, rt)),
		templ.WithStatus(status),
	).ServeHTTP(c.Writer, c.Request)
}

// signedIn reports whether the request already carries a live session. A
// missing auth context counts as signed out; renderPage reports it.
func signedIn(c *gin.Context) bool {
	state, err := authstate.FromContext(c.Request.Context())
	return err == nil && authstate.IsSignedIn(state)
}

var errNoSession = errors.New("handler: session not created")

// startSession creates a session for userID and issues the cookie.
func (h *Handler) startSession(c *gin.Context, userID string) error {
	sess, err := session.New(userID, h.now(), h.idleTTL, h.absoluteTTL)
	if err != nil {
		return errors.Join(errNoSession, err)
	}

	if err := h.sessionStore.Create(c.Request.Context(), sess); err != nil {
		return errors.Join(errNoSession, err)
	}

	session.SetCookie(c.Writer, sess.SessionID, sess.AbsoluteExpiresAt, h.cookies)

	logger.Info("session created", map[string]any{
		"user_id": userID,
		"ip":      c.ClientIP(),
	})
	return nil
}

// Logout deletes the session (best-effort) and clears the cookie. It is
// idempotent.
func (h *Handler) Logout(c *gin.Context) {
	if sessionID, ok := session.ReadCookie(c.Request); ok {
		if err := h.sessionStore.Delete(c.Request.Context(), sessionID); err != nil {
			logger.Warn("session delete failed", map[string]any{
				"error": err.Error(),
			})
		}
		logger.Info("logout", map[string]any{
			"ip": c.ClientIP(),
		})
	}

	session.ClearCookie(c.Writer, h.cookies)
	c.Status(http.StatusNoContent)
}
