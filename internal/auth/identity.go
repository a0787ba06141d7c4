// Package auth provides authentication backends for the session bridge.
package auth

import (
	"context"
	"time"

	"github.com/fbgate/fbgate/internal/auth/user"
)

// ProviderFacebook is the external identity provider identifier.
const ProviderFacebook = "facebook"

// ExternalIdentity links a provider account to a local user and carries the
// most recent access credential seen for it.
type ExternalIdentity struct {
	ID             string
	Provider       string
	ProviderUserID string
	UserID         string
	AccessToken    string
	ExpiresAt      time.Time
	UpdatedAt      time.Time
}

// UserStore persists user records.
type UserStore interface {
	PutUser(ctx context.Context, u user.User) error
	GetUserByID(ctx context.Context, id string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
}

// IdentityStore persists external identities.
type IdentityStore interface {
	UpsertExternalIdentity(ctx context.Context, identity ExternalIdentity) error
	GetExternalIdentity(ctx context.Context, provider, providerUserID string) (*ExternalIdentity, error)
}
