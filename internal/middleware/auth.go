package middleware

import (
	"context"
	"net/http"
	"time"

	"auth-portal/internal/auth/authstate"
	"auth-portal/internal/logger"
	"auth-portal/internal/session"
)

// unexported, collision-proof context key
type userIDContextKeyType struct{}

var userIDKey = userIDContextKeyType{}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

// AuthMiddleware resolves the caller's session from the session cookie.
// It implements authstate.Provider.
type AuthMiddleware struct {
	Store   session.Store
	IdleTTL time.Duration
	Now     func() time.Time
}

func NewAuthMiddleware(store session.Store, idleTTL time.Duration) *AuthMiddleware {
	return &AuthMiddleware{Store: store, IdleTTL: idleTTL, Now: time.Now}
}

var _ authstate.Provider = (*AuthMiddleware)(nil)

// Resolve returns SignedOut for a missing, unknown or expired session.
// Only store failures are reported as errors.
func (a *AuthMiddleware) Resolve(r *http.Request) (authstate.State, error) {
	sessionID, ok := session.ReadCookie(r)
	if !ok {
		return authstate.SignedOut{}, nil
	}

	sess, err := a.Store.Get(r.Context(), sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return authstate.SignedOut{}, nil
	}

	now := a.Now()
	if sess.Expired(now) {
		_ = a.Store.Delete(r.Context(), sessionID)
		return authstate.SignedOut{}, nil
	}

	if a.IdleTTL > 0 {
		touched := sess.Touch(now, a.IdleTTL)
		if err := a.Store.Update(r.Context(), touched); err != nil {
			logger.Warn("session touch failed", map[string]any{
				"error": err.Error(),
			})
		}
	}

	return authstate.SignedIn{UserID: sess.UserID, SessionID: sess.SessionID}, nil
}

// RequireAuth rejects requests without a live session and attaches the
// user id to the request context. Store failures answer 503, as in
// ProvideState.
func (a *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		state, err := a.Resolve(r)
		if err != nil {
			logger.Error("session lookup failed", map[string]any{
				"error": err.Error(),
			})
			http.Error(w, "session store unavailable", http.StatusServiceUnavailable)
			return
		}

		signedIn, ok := state.(authstate.SignedIn)
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, signedIn.UserID)
		ctx = authstate.WithState(ctx, signedIn)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
