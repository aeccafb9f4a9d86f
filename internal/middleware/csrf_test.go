package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newCSRFRouter() *gin.Engine {
	r := gin.New()
	r.Use(CSRF(CSRFConfig{}))
	r.GET("/sign-in", func(c *gin.Context) {
		c.String(http.StatusOK, CSRFTokenFromContext(c.Request.Context()))
	})
	r.POST("/sign-in", func(c *gin.Context) { c.Status(http.StatusSeeOther) })
	return r
}

func formPost(token string, cookie *http.Cookie) *http.Request {
	form := url.Values{"email": {"a@example.com"}}
	if token != "" {
		form.Set(DefaultCSRFFormField, token)
	}
	req := httptest.NewRequest(http.MethodPost, "/sign-in", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if cookie != nil {
		req.AddCookie(cookie)
	}
	return req
}

func csrfCookie(t *testing.T, rec *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range rec.Result().Cookies() {
		if c.Name == CSRFInsecureCookie {
			return c
		}
	}
	t.Fatalf("no csrf cookie in response")
	return nil
}

func TestCSRFIssuesTokenOnSafeMethods(t *testing.T) {
	r := newCSRFRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sign-in", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	cookie := csrfCookie(t, rec)
	require.NotEmpty(t, cookie.Value)
	require.True(t, cookie.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	require.Equal(t, cookie.Value, rec.Body.String())

	// an existing cookie is reused
	req := httptest.NewRequest(http.MethodGet, "/sign-in", nil)
	req.AddCookie(cookie)
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, cookie.Value, rec.Body.String())
	require.Empty(t, rec.Result().Cookies())
}

func TestCSRFValidatesUnsafeMethods(t *testing.T) {
	r := newCSRFRouter()
	cookie := &http.Cookie{Name: CSRFInsecureCookie, Value: "tok-1"}

	tests := []struct {
		name   string
		req    *http.Request
		status int
	}{
		{"matching form field", formPost("tok-1", cookie), http.StatusSeeOther},
		{"missing token", formPost("", cookie), http.StatusForbidden},
		{"wrong token", formPost("tok-2", cookie), http.StatusForbidden},
		{"missing cookie", formPost("tok-1", nil), http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, tt.req)
			require.Equal(t, tt.status, rec.Code)
		})
	}

	req := formPost("", cookie)
	req.Header.Set(DefaultCSRFHeader, "tok-1")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestCSRFRejectsCrossOrigin(t *testing.T) {
	r := newCSRFRouter()
	cookie := &http.Cookie{Name: CSRFInsecureCookie, Value: "tok-1"}

	tests := []struct {
		name   string
		header string
		value  string
		status int
	}{
		{"cross-site fetch", "Sec-Fetch-Site", "cross-site", http.StatusForbidden},
		{"sibling subdomain", "Sec-Fetch-Site", "same-site", http.StatusForbidden},
		{"same-origin fetch", "Sec-Fetch-Site", "same-origin", http.StatusSeeOther},
		{"foreign origin", "Origin", "https://evil.example", http.StatusForbidden},
		{"opaque origin", "Origin", "null", http.StatusForbidden},
		{"own origin", "Origin", "http://example.com", http.StatusSeeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := formPost("tok-1", cookie)
			req.Header.Set(tt.header, tt.value)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestCSRFSecureCookieName(t *testing.T) {
	r := gin.New()
	r.Use(CSRF(CSRFConfig{Secure: true}))
	r.GET("/sign-in", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/sign-in", nil))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, CSRFCookieName, cookies[0].Name)
	require.True(t, cookies[0].Secure)
}
