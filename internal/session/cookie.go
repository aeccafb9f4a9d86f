package session

import (
	"net/http"
	"time"
)

const (
	CookieName = "__Host-session"
	// InsecureCookieName is used when cookies are not marked Secure, since
	// browsers reject __Host- cookies without it (plain-http development).
	InsecureCookieName = "session"
)

// CookieOptions defines how session cookies are issued.
type CookieOptions struct {
	Path     string
	HttpOnly bool
	Secure   bool
	SameSite http.SameSite
	Domain   string // must be empty for __Host- cookies
}

// DefaultCookieOptions returns the options used by the auth handlers.
func DefaultCookieOptions(secure bool) CookieOptions {
	return CookieOptions{
		Path:     "/",
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Name returns the cookie name matching the security of the options.
func (o CookieOptions) Name() string {
	if o.Secure {
		return CookieName
	}
	return InsecureCookieName
}

// normalize applies safe defaults without breaking callers
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" || o.Secure {
		o.Path = "/" // required for __Host-
	}
	if o.Secure {
		o.Domain = ""
	}
	o.HttpOnly = true
	if o.SameSite == 0 {
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetCookie issues the session cookie to the client.
func SetCookie(
	w http.ResponseWriter,
	sessionID string,
	expiresAt time.Time,
	opts CookieOptions,
) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name(),
		Value:    sessionID,
		Path:     opts.Path,
		Domain:   opts.Domain,
		Expires:  expiresAt,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearCookie removes the session cookie from the client.
func ClearCookie(
	w http.ResponseWriter,
	opts CookieOptions,
) {
	opts = opts.normalize()

	http.SetCookie(w, &http.Cookie{
		Name:     opts.Name(),
		Value:    "",
		Path:     opts.Path,
		Domain:   opts.Domain,
		MaxAge:   -1,
		HttpOnly: opts.HttpOnly,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ReadCookie returns the session id carried by r, accepting either cookie name.
func ReadCookie(r *http.Request) (string, bool) {
	for _, name := range []string{CookieName, InsecureCookieName} {
		if c, err := r.Cookie(name); err == nil && c.Value != "" {
			return c.Value, true
		}
	}
	return "", false
}
