// Package identity resolves the session cookie into a per-request identity.
//
// The Facebook handlers require this middleware to have run; it is the
// analogue of a framework's authentication middleware and must sit earlier in
// the chain.
package identity

import (
	"context"
	"net/http"

	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/user"
	apperrors "github.com/fbgate/fbgate/internal/platform/errors"
	"github.com/fbgate/fbgate/internal/web/httpx"
	"github.com/fbgate/fbgate/internal/web/sessioncookie"
)

// ErrMiddlewareMissing indicates the identity middleware did not run before a
// handler that requires it. This is an integration mistake, not a runtime
// condition.
var ErrMiddlewareMissing = apperrors.E(
	apperrors.KindMisconfigured,
	"identity middleware missing: install identity.Middleware before the Facebook handlers",
)

// Identity is the per-request authentication state. A nil User means the
// request is anonymous.
type Identity struct {
	User    *user.User
	Session *session.Session
}

// Authenticated reports whether the request carries an established session.
func (id Identity) Authenticated() bool {
	return id.User != nil && id.Session != nil
}

// FacebookBacked reports whether the identity's session was established by
// the Facebook backend.
func (id Identity) FacebookBacked() bool {
	return id.Authenticated() && id.Session.ExternallyBacked()
}

type contextKey struct{}

// Middleware resolves the session cookie and stores the request identity in
// context. The identity is stored even for anonymous requests so later
// handlers can distinguish "anonymous" from "middleware not installed".
func Middleware(manager *session.Manager) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			resolved := Identity{}
			if token, ok := sessioncookie.Read(r); ok {
				record, u, err := manager.Resolve(httpx.RequestContext(r), token)
				if err != nil {
					httpx.WriteError(w, err)
					return
				}
				resolved = Identity{User: u, Session: record}
			}
			next.ServeHTTP(w, WithIdentity(r, resolved))
		})
	}
}

// WithIdentity returns a request whose context carries the given identity.
func WithIdentity(r *http.Request, id Identity) *http.Request {
	if r == nil {
		return nil
	}
	return r.WithContext(context.WithValue(r.Context(), contextKey{}, id))
}

// FromRequest returns the request identity. The second return value is false
// iff the identity middleware did not run.
func FromRequest(r *http.Request) (Identity, bool) {
	if r == nil {
		return Identity{}, false
	}
	return FromContext(r.Context())
}

// FromContext returns the identity stored in ctx.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}
