package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fbgate/fbgate/internal/auth/user"
	"github.com/fbgate/fbgate/internal/platform/id"
)

// DefaultTTL bounds session lifetime when no override is configured.
const DefaultTTL = 14 * 24 * time.Hour

// UserSource resolves users for established sessions.
type UserSource interface {
	GetUserByID(ctx context.Context, id string) (*user.User, error)
}

// Manager issues, resolves, and revokes sessions. Cookie handling stays with
// the web layer; the manager only deals in session records and signed tokens.
type Manager struct {
	store Store
	users UserSource
	key   []byte
	ttl   time.Duration
	clock func() time.Time
	newID func() (string, error)
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithTTL overrides the session lifetime.
func WithTTL(ttl time.Duration) ManagerOption {
	return func(m *Manager) {
		if ttl > 0 {
			m.ttl = ttl
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithIDGenerator overrides session id generation, primarily for tests.
func WithIDGenerator(newID func() (string, error)) ManagerOption {
	return func(m *Manager) {
		if newID != nil {
			m.newID = newID
		}
	}
}

// NewManager creates a session manager backed by the given store.
func NewManager(store Store, users UserSource, key []byte, opts ...ManagerOption) *Manager {
	m := &Manager{
		store: store,
		users: users,
		key:   key,
		ttl:   DefaultTTL,
		clock: time.Now,
		newID: id.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Issue creates a session record for the user and returns it with its signed
// token.
func (m *Manager) Issue(ctx context.Context, u user.User, backend Backend) (*Session, string, error) {
	if m == nil || m.store == nil {
		return nil, "", errors.New("session manager is not configured")
	}
	if !backend.Valid() {
		return nil, "", fmt.Errorf("unknown session backend %q", backend)
	}
	sessionID, err := m.newID()
	if err != nil {
		return nil, "", fmt.Errorf("generate session id: %w", err)
	}
	now := m.clock().UTC()
	record := Session{
		ID:        sessionID,
		UserID:    u.ID,
		Backend:   backend,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.PutSession(ctx, record); err != nil {
		return nil, "", fmt.Errorf("persist session: %w", err)
	}
	token, err := MintToken(m.key, record.ID, record.CreatedAt, record.ExpiresAt)
	if err != nil {
		return nil, "", err
	}
	return &record, token, nil
}

// Revoke deletes the session record.
func (m *Manager) Revoke(ctx context.Context, sessionID string) error {
	if m == nil || m.store == nil {
		return errors.New("session manager is not configured")
	}
	if strings.TrimSpace(sessionID) == "" {
		return nil
	}
	return m.store.DeleteSession(ctx, sessionID)
}

// Resolve verifies a session token and loads its session and user. Invalid
// tokens, missing or expired sessions, and missing users resolve to
// (nil, nil, nil); these are anonymous requests, not errors.
func (m *Manager) Resolve(ctx context.Context, token string) (*Session, *user.User, error) {
	if m == nil || m.store == nil {
		return nil, nil, errors.New("session manager is not configured")
	}
	if strings.TrimSpace(token) == "" {
		return nil, nil, nil
	}
	sessionID, err := VerifyToken(m.key, token, m.clock)
	if err != nil {
		return nil, nil, nil
	}
	record, err := m.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session: %w", err)
	}
	if record == nil {
		return nil, nil, nil
	}
	if record.Expired(m.clock().UTC()) {
		_ = m.store.DeleteSession(ctx, record.ID)
		return nil, nil, nil
	}
	if m.users == nil {
		return record, nil, nil
	}
	resolved, err := m.users.GetUserByID(ctx, record.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("load session user: %w", err)
	}
	if resolved == nil {
		return nil, nil, nil
	}
	return record, resolved, nil
}
