// Package session manages server-side sessions and their signed tokens.
package session

import (
	"context"
	"time"
)

// Backend tags which authentication backend established a session. It
// replaces duck-typed backend identifier strings with an explicit tag; every
// logout and annotate decision hinges on this value.
type Backend string

const (
	// BackendLocal marks sessions established by a local account login.
	BackendLocal Backend = "local"
	// BackendFacebook marks sessions established from a Facebook assertion.
	BackendFacebook Backend = "facebook"
)

// Valid reports whether the backend tag is a known value.
func (b Backend) Valid() bool {
	switch b {
	case BackendLocal, BackendFacebook:
		return true
	}
	return false
}

// Session is a server-side session record.
type Session struct {
	ID        string
	UserID    string
	Backend   Backend
	CreatedAt time.Time
	ExpiresAt time.Time
}

// ExternallyBacked reports whether the session was established by the
// Facebook backend.
func (s Session) ExternallyBacked() bool {
	return s.Backend == BackendFacebook
}

// Expired reports whether the session has passed its expiry.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists session records.
type Store interface {
	PutSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
}
