package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"auth-portal/internal/auth/authstate"
	"auth-portal/internal/logger"
	"auth-portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type failingStore struct{ session.Store }

func (failingStore) Get(context.Context, string) (*session.Session, error) {
	return nil, errors.New("redis down")
}

func newSession(t *testing.T, store session.Store, now time.Time) session.Session {
	t.Helper()
	s, err := session.New("user-1", now, 10*time.Minute, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), s))
	return s
}

func requestWithSession(sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: session.CookieName, Value: sessionID})
	}
	return req
}

func TestResolveSignedOutWithoutCookie(t *testing.T) {
	auth := NewAuthMiddleware(session.NewMemoryStore(), time.Minute)

	state, err := auth.Resolve(requestWithSession(""))
	require.NoError(t, err)
	require.Equal(t, authstate.SignedOut{}, state)
}

func TestResolveUnknownSession(t *testing.T) {
	auth := NewAuthMiddleware(session.NewMemoryStore(), time.Minute)

	state, err := auth.Resolve(requestWithSession("nope"))
	require.NoError(t, err)
	require.Equal(t, authstate.SignedOut{}, state)
}

func TestResolveSignedInSlidesIdleExpiry(t *testing.T) {
	store := session.NewMemoryStore()
	now := time.Now()
	s := newSession(t, store, now)

	auth := NewAuthMiddleware(store, 10*time.Minute)
	auth.Now = func() time.Time { return now.Add(5 * time.Minute) }

	state, err := auth.Resolve(requestWithSession(s.SessionID))
	require.NoError(t, err)
	require.Equal(t, authstate.SignedIn{UserID: "user-1", SessionID: s.SessionID}, state)

	got, err := store.Get(context.Background(), s.SessionID)
	require.NoError(t, err)
	require.True(t, now.Add(15*time.Minute).Equal(got.ExpiresAt))
}

func TestResolveDeletesExpiredSession(t *testing.T) {
	store := session.NewMemoryStore()
	now := time.Now()
	s := newSession(t, store, now)

	auth := NewAuthMiddleware(store, 10*time.Minute)
	// past the absolute expiry but the store copy is still present
	auth.Now = func() time.Time { return now.Add(2 * time.Hour) }
	s.ExpiresAt = now.Add(3 * time.Hour)
	require.NoError(t, store.Update(context.Background(), s))

	state, err := auth.Resolve(requestWithSession(s.SessionID))
	require.NoError(t, err)
	require.Equal(t, authstate.SignedOut{}, state)
	require.Zero(t, store.Len())
}

func TestResolveStoreError(t *testing.T) {
	auth := NewAuthMiddleware(failingStore{}, time.Minute)

	_, err := auth.Resolve(requestWithSession("sid"))
	require.Error(t, err)
}

func TestGinRequireAuth(t *testing.T) {
	store := session.NewMemoryStore()
	s := newSession(t, store, time.Now())
	auth := NewAuthMiddleware(store, 10*time.Minute)

	r := gin.New()
	r.GET("/api/me", GinRequireAuth(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"user_id": c.GetString("userID")})
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.SessionID})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user_id":"user-1"}`, rec.Body.String())
}

func TestGinRequireAuthStoreFailure(t *testing.T) {
	r := gin.New()
	r.GET("/api/me", GinRequireAuth(NewAuthMiddleware(failingStore{}, time.Minute)), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: "sid"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestProvideState(t *testing.T) {
	store := session.NewMemoryStore()
	s := newSession(t, store, time.Now())

	r := gin.New()
	r.Use(ProvideState(NewAuthMiddleware(store, time.Minute)))
	r.GET("/sign-in", func(c *gin.Context) {
		state, err := authstate.FromContext(c.Request.Context())
		require.NoError(t, err)
		if authstate.IsSignedIn(state) {
			c.String(http.StatusOK, "in")
			return
		}
		c.String(http.StatusOK, "out")
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, requestWithSession(""))
	require.Equal(t, "out", rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, requestWithSession(s.SessionID))
	require.Equal(t, "in", rec.Body.String())
}

func TestProvideStateStoreFailure(t *testing.T) {
	r := gin.New()
	r.Use(ProvideState(NewAuthMiddleware(failingStore{}, time.Minute)))
	r.GET("/sign-in", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, requestWithSession("sid"))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	logger.Set(zap.New(core))
	t.Cleanup(func() { logger.Set(nil) })

	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health?token=secret", nil))
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	require.Equal(t, "/health", entries[0].ContextMap()["path"])
	require.Equal(t, zapcore.WarnLevel, entries[1].Level)
}
