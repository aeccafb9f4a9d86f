package handler

import (
	"errors"
	"net/http"
	"net/url"

	"auth-portal/internal/auth/credentials"
	"auth-portal/internal/authpage"
	"auth-portal/internal/logger"

	"github.com/gin-gonic/gin"
)

const (
	msgInvalidEmail       = "Enter a valid email address."
	msgInvalidCredentials = "Incorrect email or password."
	msgPasswordTooShort   = "Password must be at least 8 characters."
	msgPasswordTooLong    = "Password must be at most 72 characters."
	msgAlreadyRegistered  = "An account with this email already exists."
	msgUnavailable        = "Something went wrong. Please try again."
	msgAccountConflict    = "An account with this email already exists. Sign in with your password."
)

var factorOnePath = authpage.SignInPath + "/" + string(authpage.StepFactorOne)

// signInIdentifier handles the first sign-in step and moves to the
// password step for a well-formed address.
func (h *Handler) signInIdentifier(c *gin.Context) {
	if signedIn(c) {
		c.Redirect(http.StatusSeeOther, authpage.SignInPath)
		return
	}

	raw := c.PostForm("email")
	email, err := credentials.NormalizeEmail(raw)
	if err != nil {
		h.renderPage(c, http.StatusUnprocessableEntity, authpage.Route{
			Path:  authpage.SignInPath,
			Email: raw,
			Error: msgInvalidEmail,
		})
		return
	}

	c.Redirect(http.StatusSeeOther, factorOnePath+"?email="+url.QueryEscape(email))
}

func (h *Handler) signInPassword(c *gin.Context) {
	if signedIn(c) {
		c.Redirect(http.StatusSeeOther, authpage.SignInPath)
		return
	}

	email := c.PostForm("email")
	userID, err := h.credentials.Authenticate(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status, msg := http.StatusUnauthorized, msgInvalidCredentials
		if !errors.Is(err, credentials.ErrInvalidCredentials) {
			logger.Error("password sign-in failed", map[string]any{
				"error": err.Error(),
			})
			status, msg = http.StatusInternalServerError, msgUnavailable
		}
		h.renderPage(c, status, authpage.Route{
			Path:  factorOnePath,
			Email: email,
			Error: msg,
		})
		return
	}

	if err := h.startSession(c, userID); err != nil {
		h.sessionFailed(c, err, authpage.Route{Path: factorOnePath, Email: email})
		return
	}

	c.Redirect(http.StatusSeeOther, authpage.SignInPath)
}

func (h *Handler) signUp(c *gin.Context) {
	if signedIn(c) {
		c.Redirect(http.StatusSeeOther, authpage.SignUpPath)
		return
	}

	email := c.PostForm("email")
	userID, err := h.credentials.Register(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		status, msg := registerError(err)
		if status == http.StatusInternalServerError {
			logger.Error("registration failed", map[string]any{
				"error": err.Error(),
			})
		}
		h.renderPage(c, status, authpage.Route{
			Path:  authpage.SignUpPath,
			Email: email,
			Error: msg,
		})
		return
	}

	logger.Info("user registered", map[string]any{
		"user_id": userID,
	})

	if err := h.startSession(c, userID); err != nil {
		h.sessionFailed(c, err, authpage.Route{Path: authpage.SignUpPath, Email: email})
		return
	}

	c.Redirect(http.StatusSeeOther, authpage.SignUpPath)
}

func registerError(err error) (int, string) {
	switch {
	case errors.Is(err, credentials.ErrInvalidEmail):
		return http.StatusUnprocessableEntity, msgInvalidEmail
	case errors.Is(err, credentials.ErrPasswordTooShort):
		return http.StatusUnprocessableEntity, msgPasswordTooShort
	case errors.Is(err, credentials.ErrPasswordTooLong):
		return http.StatusUnprocessableEntity, msgPasswordTooLong
	case errors.Is(err, credentials.ErrAlreadyRegistered):
		return http.StatusConflict, msgAlreadyRegistered
	default:
		return http.StatusInternalServerError, msgUnavailable
	}
}

func (h *Handler) sessionFailed(c *gin.Context, err error, rt authpage.Route) {
	logger.Error("failed to create session", map[string]any{
		"error": err.Error(),
	})
	rt.Error = msgUnavailable
	h.renderPage(c, http.StatusInternalServerError, rt)
}
