package authpage

import (
	"context"
	"io"
	"strings"

	"github.com/a-h/templ"
)

// Document renders p as a complete HTML document.
func Document(p Page) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		hw.raw(`<title>`)
		hw.text(title(p))
		hw.raw(`</title></head><body>`)
		if hw.err != nil {
			return hw.err
		}
		if err := Component(p).Render(ctx, w); err != nil {
			return err
		}
		hw.raw(`</body></html>`)
		return hw.err
	})
}

// Component renders the page body: one container holding either the
// entry-point widgets or the signed-in message.
func Component(p Page) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<div class="auth-container">`)
		if p.SignedIn {
			hw.raw(`<div class="redirect-message"><p>`)
			hw.text(p.Message)
			hw.raw(`</p></div>`)
		} else {
			for _, wd := range p.Widgets {
				renderWidget(hw, wd)
			}
		}
		hw.raw(`</div>`)
		return hw.err
	})
}

func title(p Page) string {
	if p.SignedIn {
		return "Signed in"
	}
	return "Sign in or sign up"
}

func renderWidget(hw *htmlWriter, wd Widget) {
	hw.raw(`<section class="auth-widget" data-widget="`)
	hw.text(string(wd.Kind))
	hw.raw(`" data-path="`)
	hw.text(wd.Path)
	hw.raw(`" data-step="`)
	hw.text(string(wd.Step))
	hw.raw(`">`)

	switch wd.Kind {
	case KindSignIn:
		hw.raw(`<h2>Sign in</h2>`)
	case KindSignUp:
		hw.raw(`<h2>Create your account</h2>`)
	}

	if wd.Error != "" {
		hw.raw(`<p class="auth-error" role="alert">`)
		hw.text(wd.Error)
		hw.raw(`</p>`)
	}

	switch {
	case wd.Kind == KindSignIn && wd.Step == StepFactorOne:
		renderPasswordStep(hw, wd)
	case wd.Kind == KindSignIn:
		renderIdentifierStep(hw, wd)
	case wd.Kind == KindSignUp:
		renderSignUpStep(hw, wd)
	}

	hw.raw(`</section>`)
}

func renderIdentifierStep(hw *htmlWriter, wd Widget) {
	hw.raw(`<form method="post" action="`)
	hw.text(wd.StepPath(StepStart))
	hw.raw(`">`)
	csrfInput(hw, wd.CSRFToken)
	emailInput(hw, wd.Email)
	hw.raw(`<button type="submit">Continue</button></form>`)

	if len(wd.Providers) == 0 {
		return
	}
	hw.raw(`<ul class="auth-providers">`)
	for _, name := range wd.Providers {
		hw.raw(`<li><a href="/oauth/login/`)
		hw.text(name)
		hw.raw(`" data-provider="`)
		hw.text(name)
		hw.raw(`">Continue with `)
		hw.text(displayName(name))
		hw.raw(`</a></li>`)
	}
	hw.raw(`</ul>`)
}

func renderPasswordStep(hw *htmlWriter, wd Widget) {
	hw.raw(`<p class="auth-identifier">`)
	hw.text(wd.Email)
	hw.raw(` <a href="`)
	hw.text(wd.StepPath(StepStart))
	hw.raw(`">Use another email</a></p>`)

	hw.raw(`<form method="post" action="`)
	hw.text(wd.StepPath(StepFactorOne))
	hw.raw(`"><input type="hidden" name="email" value="`)
	hw.text(wd.Email)
	hw.raw(`">`)
	csrfInput(hw, wd.CSRFToken)
	passwordInput(hw, "current-password")
	hw.raw(`<button type="submit">Sign in</button></form>`)
}

func renderSignUpStep(hw *htmlWriter, wd Widget) {
	hw.raw(`<form method="post" action="`)
	hw.text(wd.StepPath(StepStart))
	hw.raw(`">`)
	csrfInput(hw, wd.CSRFToken)
	emailInput(hw, wd.Email)
	passwordInput(hw, "new-password")
	hw.raw(`<button type="submit">Sign up</button></form>`)
}

// CSRFField is the form field carrying the anti-forgery token.
const CSRFField = "_csrf"

func csrfInput(hw *htmlWriter, token string) {
	if token == "" {
		return
	}
	hw.raw(`<input type="hidden" name="` + CSRFField + `" value="`)
	hw.text(token)
	hw.raw(`">`)
}

func emailInput(hw *htmlWriter, value string) {
	hw.raw(`<label>Email address <input type="email" name="email" autocomplete="email" required value="`)
	hw.text(value)
	hw.raw(`"></label>`)
}

func passwordInput(hw *htmlWriter, autocomplete string) {
	hw.raw(`<label>Password <input type="password" name="password" minlength="8" required autocomplete="`)
	hw.text(autocomplete)
	hw.raw(`"></label>`)
}

func displayName(provider string) string {
	if provider == "" {
		return provider
	}
	return strings.ToUpper(provider[:1]) + provider[1:]
}

// htmlWriter keeps the first write error so rendering code stays linear.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}
