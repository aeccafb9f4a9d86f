package session

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidSession = errors.New("session: invalid session")

// Session represents an authenticated user session.
// It intentionally stores only identity pointers, not auth state.
type Session struct {
	SessionID         string    `json:"session_id"`
	UserID            string    `json:"user_id"`
	CreatedAt         time.Time `json:"created_at"`
	ExpiresAt         time.Time `json:"expires_at"`          // idle expiry, slides on activity
	AbsoluteExpiresAt time.Time `json:"absolute_expires_at"` // hard cap, never extended
}

// New builds a session for userID with a fresh id. The idle expiry is
// capped by the absolute expiry.
func New(userID string, now time.Time, idle, absolute time.Duration) (Session, error) {
	if userID == "" {
		return Session{}, ErrInvalidSession
	}
	id, err := GenerateID()
	if err != nil {
		return Session{}, err
	}
	s := Session{
		SessionID:         id,
		UserID:            userID,
		CreatedAt:         now,
		AbsoluteExpiresAt: now.Add(absolute),
	}
	s.ExpiresAt = s.capped(now.Add(idle))
	return s, nil
}

// Expired reports whether the session is no longer usable at now.
func (s Session) Expired(now time.Time) bool {
	if now.After(s.ExpiresAt) {
		return true
	}
	return !s.AbsoluteExpiresAt.IsZero() && now.After(s.AbsoluteExpiresAt)
}

// Touch slides the idle expiry forward from now.
func (s Session) Touch(now time.Time, idle time.Duration) Session {
	s.ExpiresAt = s.capped(now.Add(idle))
	return s
}

func (s Session) capped(t time.Time) time.Time {
	if !s.AbsoluteExpiresAt.IsZero() && t.After(s.AbsoluteExpiresAt) {
		return s.AbsoluteExpiresAt
	}
	return t
}

// Store defines how sessions are stored and retrieved.
// Get returns (nil, nil) when the session does not exist.
type Store interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, sessionID string) (*Session, error)
	Update(ctx context.Context, s Session) error
	Delete(ctx context.Context, sessionID string) error
}
