package middleware

import (
	"net/http"

	"auth-portal/internal/auth/authstate"
	"auth-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

// GinRequireAuth adapts the net/http RequireAuth to Gin.
func GinRequireAuth(auth *AuthMiddleware) gin.HandlerFunc {
	return func(c *gin.Context) {
		next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c.Request = r
			if id, ok := UserIDFromContext(r.Context()); ok {
				c.Set("userID", id)
			}
			c.Next()
		})

		auth.RequireAuth(next).ServeHTTP(c.Writer, c.Request)

		// auth middleware already answered
		if c.Writer.Written() {
			c.Abort()
		}
	}
}

// ProvideState resolves the authentication state once per request and
// attaches it to the request context for authstate.FromContext.
func ProvideState(p authstate.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		state, err := p.Resolve(c.Request)
		if err != nil {
			logger.Error("auth state resolution failed", map[string]any{
				"error": err.Error(),
				"path":  c.Request.URL.Path,
			})
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}

		if s, ok := state.(authstate.SignedIn); ok {
			c.Set("userID", s.UserID)
		}
		c.Request = c.Request.WithContext(authstate.WithState(c.Request.Context(), state))
		c.Next()
	}
}
