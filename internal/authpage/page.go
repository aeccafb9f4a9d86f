// Package authpage builds the authentication landing page.
//
// The page shows the sign-in and sign-up widgets to anonymous visitors and
// a short message to visitors who already hold a session. Build is pure:
// the caller supplies the authentication state and the route being served.
package authpage

import (
	"fmt"
	"strings"

	"auth-portal/internal/auth/authstate"
)

const (
	SignInPath = "/sign-in"
	SignUpPath = "/signup"

	SignedInMessage = "You are already signed in"
)

type Kind string

const (
	KindSignIn Kind = "SignIn"
	KindSignUp Kind = "SignUp"
)

// Step is a position inside a widget's multi-step flow. Steps map to the
// first path segment below the widget's base path.
type Step string

const (
	StepStart     Step = "start"
	StepFactorOne Step = "factor-one"
)

// Route describes the request the page is rendered for.
type Route struct {
	// Path is the request URL path, e.g. /sign-in/factor-one.
	Path string
	// Email pre-fills the active widget.
	Email string
	// Error is shown inside the active widget only.
	Error string
	// Providers lists the OAuth providers offered by the sign-in widget.
	Providers []string
	// CSRFToken is echoed in every form as the _csrf field.
	CSRFToken string
}

type Widget struct {
	Kind      Kind
	Path      string
	Step      Step
	Email     string
	Error     string
	Providers []string
	CSRFToken string
}

// Marker identifies the widget and its base path, e.g. SignIn(path=/sign-in).
func (w Widget) Marker() string {
	return fmt.Sprintf("%s(path=%s)", w.Kind, w.Path)
}

// StepPath is the URL of step s within the widget.
func (w Widget) StepPath(s Step) string {
	if s == StepStart {
		return w.Path
	}
	return w.Path + "/" + string(s)
}

// Page is the view model. Exactly one of Widgets or Message is set.
type Page struct {
	SignedIn bool
	Widgets  []Widget
	Message  string
}

// Markers returns the markers of the rendered widgets in order.
func (p Page) Markers() []string {
	out := make([]string, 0, len(p.Widgets))
	for _, w := range p.Widgets {
		out = append(out, w.Marker())
	}
	return out
}

// Build selects the view for state s.
func Build(s authstate.State, rt Route) Page {
	switch s.(type) {
	case authstate.SignedOut:
		return Page{
			Widgets: []Widget{
				signInWidget(rt),
				signUpWidget(rt),
			},
		}
	case authstate.SignedIn:
		return Page{
			SignedIn: true,
			Message:  SignedInMessage,
		}
	default:
		panic(fmt.Sprintf("authpage: unexpected auth state %T", s))
	}
}

func signInWidget(rt Route) Widget {
	w := Widget{
		Kind:      KindSignIn,
		Path:      SignInPath,
		Step:      stepFor(rt.Path, SignInPath, StepFactorOne),
		Providers: rt.Providers,
		CSRFToken: rt.CSRFToken,
	}
	if underBase(rt.Path, SignInPath) {
		w.Email = rt.Email
		w.Error = rt.Error
	}
	// the password step needs an identifier to continue
	if w.Step == StepFactorOne && w.Email == "" {
		w.Step = StepStart
	}
	return w
}

func signUpWidget(rt Route) Widget {
	w := Widget{
		Kind:      KindSignUp,
		Path:      SignUpPath,
		Step:      stepFor(rt.Path, SignUpPath),
		CSRFToken: rt.CSRFToken,
	}
	if underBase(rt.Path, SignUpPath) {
		w.Email = rt.Email
		w.Error = rt.Error
	}
	return w
}

// stepFor maps the first segment below base to one of known. Anything
// else, including paths outside base, is the start step.
func stepFor(path, base string, known ...Step) Step {
	rest, ok := strings.CutPrefix(path, base+"/")
	if !ok {
		return StepStart
	}
	seg, _, _ := strings.Cut(rest, "/")
	for _, s := range known {
		if Step(seg) == s {
			return s
		}
	}
	return StepStart
}

func underBase(path, base string) bool {
	return path == base || strings.HasPrefix(path, base+"/")
}
