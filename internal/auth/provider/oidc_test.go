package provider

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testOIDC(tokenURL string) *OIDC {
	return &OIDC{
		name: "google",
		oauthConfig: &oauth2.Config{
			ClientID:    "client",
			RedirectURL: "http://localhost:8080/oauth/callback/google",
			Endpoint: oauth2.Endpoint{
				AuthURL:  "https://idp.example/auth",
				TokenURL: tokenURL,
			},
		},
	}
}

func TestAuthCodeURLCarriesS256Challenge(t *testing.T) {
	verifier := oauth2.GenerateVerifier()

	loc, err := url.Parse(testOIDC("https://idp.example/token").AuthCodeURL("st-1", verifier))
	require.NoError(t, err)

	q := loc.Query()
	require.Equal(t, "st-1", q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), q.Get("code_challenge"))
	require.Empty(t, q.Get("code_verifier"))
}

func TestExchangeCodeSendsVerifier(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer"}`))
	}))
	defer srv.Close()

	_, err := testOIDC(srv.URL).ExchangeCode(context.Background(), "code-1", "verifier-1")
	require.ErrorContains(t, err, "did not return id_token")
	require.Equal(t, "code-1", form.Get("code"))
	require.Equal(t, "verifier-1", form.Get("code_verifier"))
}
