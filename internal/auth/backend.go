package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fbgate/fbgate/internal/auth/user"
	"github.com/fbgate/fbgate/internal/facebook"
	"github.com/fbgate/fbgate/internal/platform/id"
)

// Backend authenticates a request against one credential source. A nil user
// with a nil error means the request carried no usable credential; that is
// the normal negative path, not a failure.
type Backend interface {
	Authenticate(ctx context.Context, r *http.Request) (*user.User, error)
}

// FacebookBackend authenticates requests from Facebook signed-request
// assertions. It creates the local user on first sight, keyed by the Facebook
// user id, and records the external identity with its access token.
type FacebookBackend struct {
	app        facebook.App
	users      UserStore
	identities IdentityStore
	newGraph   func(token string) *facebook.GraphAPI
	clock      func() time.Time
	newID      func() (string, error)
}

// FacebookBackendOption customizes a FacebookBackend.
type FacebookBackendOption func(*FacebookBackend)

// WithGraphFactory overrides Graph client construction, primarily for tests.
func WithGraphFactory(newGraph func(token string) *facebook.GraphAPI) FacebookBackendOption {
	return func(b *FacebookBackend) {
		if newGraph != nil {
			b.newGraph = newGraph
		}
	}
}

// WithClock overrides the time source, primarily for tests.
func WithClock(clock func() time.Time) FacebookBackendOption {
	return func(b *FacebookBackend) {
		if clock != nil {
			b.clock = clock
		}
	}
}

// NewFacebookBackend creates the Facebook authentication backend.
func NewFacebookBackend(app facebook.App, users UserStore, identities IdentityStore, opts ...FacebookBackendOption) *FacebookBackend {
	b := &FacebookBackend{
		app:        app,
		users:      users,
		identities: identities,
		newGraph:   func(token string) *facebook.GraphAPI { return facebook.NewGraphAPI(token) },
		clock:      time.Now,
		newID:      id.NewID,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// App returns the Facebook application the backend is bound to.
func (b *FacebookBackend) App() facebook.App {
	return b.app
}

// Authenticate recovers an assertion from the request and resolves it to a
// local user, creating the user on first login.
func (b *FacebookBackend) Authenticate(ctx context.Context, r *http.Request) (*user.User, error) {
	assertion, ok := b.app.AssertionFromRequest(r)
	if !ok {
		return nil, nil
	}

	token := assertion.AccessToken
	if token == "" && assertion.Code != "" {
		exchanged, err := b.newGraph("").ExchangeCode(ctx, b.app, assertion.Code)
		if err != nil {
			// An unexchangeable code is a stale assertion, not a failure.
			return nil, nil
		}
		token = exchanged
	}

	resolved, err := b.users.GetUserByUsername(ctx, assertion.UserID)
	if err != nil {
		return nil, fmt.Errorf("look up user: %w", err)
	}
	if resolved == nil {
		created, err := user.CreateUser(user.CreateUserInput{Username: assertion.UserID}, b.clock, b.newID)
		if err != nil {
			return nil, fmt.Errorf("create user: %w", err)
		}
		if err := b.users.PutUser(ctx, created); err != nil {
			return nil, fmt.Errorf("persist user: %w", err)
		}
		resolved = &created
	}

	if b.identities != nil && token != "" {
		identityID, err := b.newID()
		if err != nil {
			return nil, fmt.Errorf("generate identity id: %w", err)
		}
		now := b.clock().UTC()
		err = b.identities.UpsertExternalIdentity(ctx, ExternalIdentity{
			ID:             identityID,
			Provider:       ProviderFacebook,
			ProviderUserID: assertion.UserID,
			UserID:         resolved.ID,
			AccessToken:    token,
			ExpiresAt:      now.Add(time.Hour),
			UpdatedAt:      now,
		})
		if err != nil {
			return nil, fmt.Errorf("persist external identity: %w", err)
		}
	}
	return resolved, nil
}
