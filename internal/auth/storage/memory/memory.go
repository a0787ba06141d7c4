// Package memory provides an in-memory store for tests and zero-config runs.
package memory

import (
	"context"
	"sync"

	"github.com/fbgate/fbgate/internal/auth"
	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/user"
)

// Store holds users, sessions, and external identities in mutex-guarded maps.
// It is safe for concurrent use.
type Store struct {
	mu         sync.RWMutex
	users      map[string]user.User
	byUsername map[string]string
	sessions   map[string]session.Session
	identities map[identityKey]auth.ExternalIdentity
}

type identityKey struct {
	provider       string
	providerUserID string
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		users:      make(map[string]user.User),
		byUsername: make(map[string]string),
		sessions:   make(map[string]session.Session),
		identities: make(map[identityKey]auth.ExternalIdentity),
	}
}

// PutUser stores a user record.
func (s *Store) PutUser(_ context.Context, u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.users[u.ID]; ok {
		delete(s.byUsername, existing.Username)
	}
	s.users[u.ID] = u
	s.byUsername[u.Username] = u.ID
	return nil
}

// GetUserByID returns the user with the given id, or nil.
func (s *Store) GetUserByID(_ context.Context, id string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

// GetUserByUsername returns the user with the given username, or nil.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*user.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byUsername[username]
	if !ok {
		return nil, nil
	}
	u := s.users[id]
	return &u, nil
}

// PutSession stores a session record.
func (s *Store) PutSession(_ context.Context, record session.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[record.ID] = record
	return nil
}

// GetSession returns the session with the given id, or nil.
func (s *Store) GetSession(_ context.Context, id string) (*session.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.sessions[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

// DeleteSession removes the session with the given id.
func (s *Store) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
	return nil
}

// UpsertExternalIdentity stores an external identity keyed by provider and
// provider user id.
func (s *Store) UpsertExternalIdentity(_ context.Context, identity auth.ExternalIdentity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := identityKey{provider: identity.Provider, providerUserID: identity.ProviderUserID}
	if existing, ok := s.identities[key]; ok {
		identity.ID = existing.ID
	}
	s.identities[key] = identity
	return nil
}

// GetExternalIdentity returns the identity for provider + provider user id, or nil.
func (s *Store) GetExternalIdentity(_ context.Context, provider, providerUserID string) (*auth.ExternalIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[identityKey{provider: provider, providerUserID: providerUserID}]
	if !ok {
		return nil, nil
	}
	return &identity, nil
}
