package handler

import (
	"errors"
	"net/http"

	"auth-portal/internal/auth/resolver"
	"auth-portal/internal/authpage"
	"auth-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

func (h *Handler) login(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if signedIn(c) {
		c.Redirect(http.StatusFound, authpage.SignInPath)
		return
	}

	state, err := h.issueState(c)
	if err != nil {
		c.AbortWithStatus(http.StatusInternalServerError)
		return
	}
	verifier := h.issuePKCE(c)

	c.Redirect(http.StatusFound, p.AuthCodeURL(state, verifier))
}

func (h *Handler) callback(c *gin.Context) {
	providerName := c.Param("provider")

	p, err := h.providers.Get(providerName)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "unknown oauth provider",
		})
		return
	}

	if !validateState(c) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "invalid state",
		})
		return
	}
	codeVerifier := getPKCEVerifier(c)
	h.clearFlowCookies(c)

	// provider-side errors (user cancelled, registration aborted) restart the flow
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("oidc callback returned error", map[string]any{
			"provider": providerName,
			"error":    errParam,
			"desc":     c.Query("error_description"),
		})
		c.Redirect(http.StatusFound, authpage.SignInPath)
		return
	}

	code := c.Query("code")
	if code == "" {
		logger.Error("oidc callback missing code and error", map[string]any{
			"provider": providerName,
		})
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	if codeVerifier == "" {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "missing pkce verifier",
		})
		return
	}

	identity, err := p.ExchangeCode(c.Request.Context(), code, codeVerifier)
	if err != nil {
		logger.Error("oidc code exchange failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "authentication failed",
		})
		return
	}

	userID, err := h.resolver.Resolve(c.Request.Context(), identity)
	if errors.Is(err, resolver.ErrEmailConflict) {
		logger.Warn("identity not linked to existing account", map[string]any{
			"provider": providerName,
		})
		h.renderPage(c, http.StatusConflict, authpage.Route{
			Path:  authpage.SignInPath,
			Error: msgAccountConflict,
		})
		return
	}
	if err != nil {
		logger.Error("identity resolution failed", map[string]any{
			"provider": providerName,
			"error":    err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to resolve user",
		})
		return
	}

	if err := h.startSession(c, userID); err != nil {
		logger.Error("failed to create session", map[string]any{
			"error": err.Error(),
		})
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "failed to create session",
		})
		return
	}

	c.Redirect(http.StatusFound, authpage.SignInPath)
}
