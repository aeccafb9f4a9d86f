package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/oauth2"
)

const (
	pkceCookieName = "__oauth_pkce"
	pkceTTL        = 5 * time.Minute
)

// issuePKCE stores a fresh verifier in a cookie and returns it. Providers
// derive the S256 challenge from it.
func (h *Handler) issuePKCE(c *gin.Context) string {
	verifier := oauth2.GenerateVerifier()
	h.setFlowCookie(c, pkceCookieName, verifier, pkceTTL)
	return verifier
}

func getPKCEVerifier(c *gin.Context) string {
	cookie, err := c.Request.Cookie(pkceCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}
