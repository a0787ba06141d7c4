// Package sqlite implements auth persistence over SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fbgate/fbgate/internal/auth"
	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/user"
	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339Nano

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id TEXT PRIMARY KEY,
	username TEXT NOT NULL UNIQUE,
	display_name TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	backend TEXT NOT NULL,
	created_at TEXT NOT NULL,
	expires_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS external_identities (
	id TEXT NOT NULL,
	provider TEXT NOT NULL,
	provider_user_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	access_token TEXT NOT NULL,
	expires_at TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (provider, provider_user_id)
);
`

// Store provides SQLite-backed storage for users, sessions, and external
// identities. A single file backs all three so they share transaction and
// visibility boundaries.
type Store struct {
	db *sql.DB
}

// Open opens the SQLite store at path and bootstraps the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureDB() error {
	if s == nil || s.db == nil {
		return errors.New("sqlite store is not configured")
	}
	return nil
}

// PutUser inserts or updates a user record.
func (s *Store) PutUser(ctx context.Context, u user.User) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, username, display_name, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			display_name = excluded.display_name,
			updated_at = excluded.updated_at`,
		u.ID, u.Username, u.DisplayName,
		u.CreatedAt.UTC().Format(timeFormat), u.UpdatedAt.UTC().Format(timeFormat),
	)
	return err
}

// GetUserByID returns the user with the given id, or nil.
func (s *Store) GetUserByID(ctx context.Context, id string) (*user.User, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, created_at, updated_at FROM users WHERE id = ?`, id))
}

// GetUserByUsername returns the user with the given username, or nil.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, display_name, created_at, updated_at FROM users WHERE username = ?`, username))
}

func (s *Store) scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	var createdAt, updatedAt string
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if u.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, err
	}
	if u.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, err
	}
	return &u, nil
}

// PutSession inserts or replaces a session record.
func (s *Store) PutSession(ctx context.Context, record session.Session) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, user_id, backend, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.ID, record.UserID, string(record.Backend),
		record.CreatedAt.UTC().Format(timeFormat), record.ExpiresAt.UTC().Format(timeFormat),
	)
	return err
}

// GetSession returns the session with the given id, or nil.
func (s *Store) GetSession(ctx context.Context, id string) (*session.Session, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var record session.Session
	var backend, createdAt, expiresAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, user_id, backend, created_at, expires_at FROM sessions WHERE id = ?`, id,
	).Scan(&record.ID, &record.UserID, &backend, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	record.Backend = session.Backend(backend)
	if record.CreatedAt, err = time.Parse(timeFormat, createdAt); err != nil {
		return nil, err
	}
	if record.ExpiresAt, err = time.Parse(timeFormat, expiresAt); err != nil {
		return nil, err
	}
	return &record, nil
}

// DeleteSession removes the session with the given id.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	return err
}

// UpsertExternalIdentity stores an external identity.
func (s *Store) UpsertExternalIdentity(ctx context.Context, identity auth.ExternalIdentity) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO external_identities
		(id, provider, provider_user_id, user_id, access_token, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(provider, provider_user_id) DO UPDATE SET
			user_id = excluded.user_id,
			access_token = excluded.access_token,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		identity.ID, identity.Provider, identity.ProviderUserID, identity.UserID,
		identity.AccessToken,
		identity.ExpiresAt.UTC().Format(timeFormat), identity.UpdatedAt.UTC().Format(timeFormat),
	)
	return err
}

// GetExternalIdentity returns the identity for provider + provider user id, or nil.
func (s *Store) GetExternalIdentity(ctx context.Context, provider, providerUserID string) (*auth.ExternalIdentity, error) {
	if err := s.ensureDB(); err != nil {
		return nil, err
	}
	var identity auth.ExternalIdentity
	var expiresAt, updatedAt string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, provider, provider_user_id, user_id, access_token, expires_at, updated_at
		FROM external_identities WHERE provider = ? AND provider_user_id = ?`,
		provider, providerUserID,
	).Scan(
		&identity.ID, &identity.Provider, &identity.ProviderUserID, &identity.UserID,
		&identity.AccessToken, &expiresAt, &updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if identity.ExpiresAt, err = time.Parse(timeFormat, expiresAt); err != nil {
		return nil, err
	}
	if identity.UpdatedAt, err = time.Parse(timeFormat, updatedAt); err != nil {
		return nil, err
	}
	return &identity, nil
}

// CleanupExpiredSessions deletes sessions whose expiry has passed.
func (s *Store) CleanupExpiredSessions(ctx context.Context, now time.Time) error {
	if err := s.ensureDB(); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM sessions WHERE expires_at <= ?`, now.UTC().Format(timeFormat))
	return err
}
