// Package authstate models whether the current visitor is signed in.
//
// State is a closed sum type: the only implementations are SignedOut and
// SignedIn. Pages receive it through the request context, populated by the
// session middleware, so they can be tested by injecting either variant.
package authstate

import (
	"context"
	"errors"
	"net/http"
)

// ErrNoAuthContext is returned when no state was attached to the context.
// It means the session middleware is not mounted in front of the handler.
var ErrNoAuthContext = errors.New("authstate: no authentication context")

type State interface {
	isState()
}

// SignedOut is the state of an anonymous visitor.
type SignedOut struct{}

// SignedIn is the state of a visitor holding a live session.
type SignedIn struct {
	UserID    string
	SessionID string
}

func (SignedOut) isState() {}
func (SignedIn) isState()  {}

// IsSignedIn reports whether s is the SignedIn variant.
func IsSignedIn(s State) bool {
	_, ok := s.(SignedIn)
	return ok
}

// Provider resolves the authentication state for a request.
type Provider interface {
	Resolve(r *http.Request) (State, error)
}

type stateContextKeyType struct{}

var stateKey = stateContextKeyType{}

// WithState returns a copy of ctx carrying s.
func WithState(ctx context.Context, s State) context.Context {
	return context.WithValue(ctx, stateKey, s)
}

// FromContext returns the state attached by WithState.
func FromContext(ctx context.Context) (State, error) {
	s, ok := ctx.Value(stateKey).(State)
	if !ok || s == nil {
		return nil, ErrNoAuthContext
	}
	return s, nil
}
