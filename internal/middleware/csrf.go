package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"
	"net/url"
	"time"

	"auth-portal/internal/logger"
	"auth-portal/internal/utils"

	"github.com/gin-gonic/gin"
)

type csrfContextKey struct{}

const (
	CSRFCookieName       = "__Host-csrf"
	CSRFInsecureCookie   = "csrf"
	DefaultCSRFHeader    = "X-CSRF-Token"
	DefaultCSRFFormField = "_csrf"
)

// CSRFConfig controls cookie and header behaviour.
type CSRFConfig struct {
	CookieName string
	HeaderName string
	FormField  string
	MaxAge     time.Duration
	Secure     bool
}

// CSRF attaches double-submit cookie protection. Safe methods make sure a
// token is issued; unsafe methods must come from the same origin and echo
// the cookie value in the header or the form field.
func CSRF(cfg CSRFConfig) gin.HandlerFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = CSRFInsecureCookie
		if cfg.Secure {
			cfg.CookieName = CSRFCookieName
		}
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultCSRFHeader
	}
	if cfg.FormField == "" {
		cfg.FormField = DefaultCSRFFormField
	}
	if cfg.MaxAge == 0 {
		cfg.MaxAge = 24 * time.Hour
	}

	return func(c *gin.Context) {
		unsafe := isUnsafeMethod(c.Request.Method)
		if unsafe && crossOrigin(c.Request) {
			logger.Warn("cross-origin request rejected", map[string]any{
				"path":   c.Request.URL.Path,
				"origin": c.GetHeader("Origin"),
			})
			c.AbortWithStatus(http.StatusForbidden)
			return
		}

		token, err := ensureCSRFToken(c, cfg)
		if err != nil {
			logger.Error("csrf token error", map[string]any{
				"error": err.Error(),
			})
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		if unsafe {
			submitted := c.GetHeader(cfg.HeaderName)
			if submitted == "" {
				submitted = c.PostForm(cfg.FormField)
			}
			if submitted == "" || subtle.ConstantTimeCompare([]byte(submitted), []byte(token)) != 1 {
				logger.Warn("csrf token mismatch", map[string]any{
					"path": c.Request.URL.Path,
				})
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
		}

		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), csrfContextKey{}, token))
		c.Next()
	}
}

// CSRFTokenFromContext returns the token issued for the current request, to
// embed in forms.
func CSRFTokenFromContext(ctx context.Context) string {
	if token, ok := ctx.Value(csrfContextKey{}).(string); ok {
		return token
	}
	return ""
}

func ensureCSRFToken(c *gin.Context, cfg CSRFConfig) (string, error) {
	if ck, err := c.Request.Cookie(cfg.CookieName); err == nil && ck.Value != "" {
		return ck.Value, nil
	}

	token, err := utils.RandomString(32)
	if err != nil {
		return "", err
	}

	http.SetCookie(c.Writer, &http.Cookie{
		Name:     cfg.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   cfg.Secure || c.Request.TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(cfg.MaxAge.Seconds()),
	})
	return token, nil
}

// crossOrigin uses Sec-Fetch-Site when the browser sends it and falls back
// to comparing the Origin host. Requests carrying neither pass through to
// the token check.
func crossOrigin(r *http.Request) bool {
	switch r.Header.Get("Sec-Fetch-Site") {
	case "same-origin", "none":
		return false
	case "cross-site", "same-site":
		return true
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return true
	}
	return u.Host != r.Host
}

func isUnsafeMethod(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodTrace:
		return false
	default:
		return true
	}
}
