package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"auth-portal/internal/auth"
	"auth-portal/internal/auth/credentials"
	"auth-portal/internal/auth/provider"
	"auth-portal/internal/config"
	"auth-portal/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type noCredentials struct{}

func (noCredentials) Register(context.Context, string, string) (string, error) {
	return "", credentials.ErrAlreadyRegistered
}

func (noCredentials) Authenticate(context.Context, string, string) (string, error) {
	return "", credentials.ErrInvalidCredentials
}

type noResolver struct{}

func (noResolver) Resolve(context.Context, *auth.Identity) (string, error) {
	return "", nil
}

func testRouter(t *testing.T) (*gin.Engine, *session.MemoryStore) {
	t.Helper()
	store := session.NewMemoryStore()
	cfg := config.Config{
		SessionIdleTTL:     30 * time.Minute,
		SessionAbsoluteTTL: 24 * time.Hour,
	}
	return NewRouter(cfg, Deps{
		Sessions:    store,
		Providers:   provider.NewRegistry(),
		Resolver:    noResolver{},
		Credentials: noCredentials{},
	}), store
}

func TestHealth(t *testing.T) {
	r, _ := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAuthenticationPageMountedAtBothPrefixes(t *testing.T) {
	r, store := testRouter(t)

	s, err := session.New("user-9", time.Now(), time.Minute, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), s))

	for _, path := range []string{"/sign-in", "/sign-in/factor-one", "/signup", "/signup/anything"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusOK, rec.Code, path)

		doc, err := goquery.NewDocumentFromReader(rec.Body)
		require.NoError(t, err)
		require.Equal(t, 2, doc.Find("[data-widget]").Length(), path)

		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.AddCookie(&http.Cookie{Name: session.InsecureCookieName, Value: s.SessionID})
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		doc, err = goquery.NewDocumentFromReader(rec.Body)
		require.NoError(t, err)
		require.Equal(t, 1, doc.Find(".redirect-message").Length(), path)
		require.Equal(t, 0, doc.Find("[data-widget]").Length(), path)
	}
}

func TestAPIMeRequiresSession(t *testing.T) {
	r, store := testRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	s, err := session.New("user-9", time.Now(), time.Minute, time.Hour)
	require.NoError(t, err)
	require.NoError(t, store.Create(context.Background(), s))

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: s.SessionID})
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"user_id":"user-9"}`, rec.Body.String())
}

func TestSignInPostRequiresCSRFToken(t *testing.T) {
	r, _ := testRouter(t)

	form := url.Values{"email": {"a@example.com"}, "password": {"password123"}}
	req := httptest.NewRequest(http.MethodPost, "/sign-in/factor-one", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Sec-Fetch-Site", "cross-site")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusForbidden, rec.Code)
}
