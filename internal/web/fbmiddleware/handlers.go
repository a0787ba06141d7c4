package fbmiddleware

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/fbgate/fbgate/internal/auth"
	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/facebook"
	"github.com/fbgate/fbgate/internal/platform/metrics"
	"github.com/fbgate/fbgate/internal/web/httpx"
	"github.com/fbgate/fbgate/internal/web/identity"
	"github.com/fbgate/fbgate/internal/web/requestmeta"
	"github.com/fbgate/fbgate/internal/web/sessioncookie"
)

var tracer = otel.Tracer("github.com/fbgate/fbgate/internal/web/fbmiddleware")

// step processes one request and returns the possibly enriched request, so
// later stages of the same pass observe earlier mutations.
type step func(w http.ResponseWriter, r *http.Request) (*http.Request, error)

// Bridge holds the collaborators shared by the Facebook handlers.
type Bridge struct {
	backend    *auth.FacebookBackend
	manager    *session.Manager
	identities auth.IdentityStore
	policy     requestmeta.SchemePolicy
	newGraph   func(token string) *facebook.GraphAPI
}

// Option customizes a Bridge.
type Option func(*Bridge)

// WithSchemePolicy sets the cookie scheme policy for deployments behind a
// trusted proxy.
func WithSchemePolicy(policy requestmeta.SchemePolicy) Option {
	return func(b *Bridge) {
		b.policy = policy
	}
}

// WithGraphFactory overrides Graph client construction, primarily for tests.
func WithGraphFactory(newGraph func(token string) *facebook.GraphAPI) Option {
	return func(b *Bridge) {
		if newGraph != nil {
			b.newGraph = newGraph
		}
	}
}

// New creates the Facebook session bridge. identities may be nil when stored
// access tokens are not wanted for annotation.
func New(backend *auth.FacebookBackend, manager *session.Manager, identities auth.IdentityStore, opts ...Option) *Bridge {
	b := &Bridge{
		backend:    backend,
		manager:    manager,
		identities: identities,
		newGraph:   func(token string) *facebook.GraphAPI { return facebook.NewGraphAPI(token) },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(b)
		}
	}
	return b
}

// login authenticates an anonymous request from a Facebook assertion and
// establishes a session. Authenticated requests pass through untouched.
func (b *Bridge) login(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	id, ok := identity.FromRequest(r)
	if !ok {
		return r, identity.ErrMiddlewareMissing
	}
	if id.Authenticated() {
		return r, nil
	}

	ctx := httpx.RequestContext(r)
	u, err := b.backend.Authenticate(ctx, r)
	if err != nil {
		metrics.LoginFailuresTotal.Inc()
		return r, err
	}
	if u == nil {
		return r, nil
	}

	record, token, err := b.manager.Issue(ctx, *u, session.BackendFacebook)
	if err != nil {
		metrics.LoginFailuresTotal.Inc()
		return r, err
	}
	sessioncookie.WriteWithPolicy(w, r, token, b.policy)
	metrics.LoginsTotal.Inc()
	return identity.WithIdentity(r, identity.Identity{User: u, Session: record}), nil
}

// logout terminates a Facebook-backed session when the fbsr cookie no longer
// corroborates it. A missing cookie counts as a mismatch: Facebook clears the
// cookie on logout without notifying us, so absence means the user left.
func (b *Bridge) logout(w http.ResponseWriter, r *http.Request) (*http.Request, error) {
	id, ok := identity.FromRequest(r)
	if !ok {
		return r, identity.ErrMiddlewareMissing
	}
	if !id.FacebookBacked() {
		return r, nil
	}

	assertion, ok := b.backend.App().AssertionFromCookie(r)
	if ok && assertion.UserID == id.User.Username {
		return r, nil
	}

	if err := b.manager.Revoke(httpx.RequestContext(r), id.Session.ID); err != nil {
		return r, err
	}
	sessioncookie.ClearWithPolicy(w, r, b.policy)
	metrics.LogoutsTotal.Inc()
	return identity.WithIdentity(r, identity.Identity{}), nil
}

// annotate attaches a Facebook accessor when the session is Facebook-backed.
// The access token comes from the request assertion when present, else from
// the stored external identity; with neither, the accessor carries an
// unauthenticated Graph client.
func (b *Bridge) annotate(_ http.ResponseWriter, r *http.Request) (*http.Request, error) {
	id, ok := identity.FromRequest(r)
	if !ok {
		return r, identity.ErrMiddlewareMissing
	}
	if !id.FacebookBacked() {
		return r, nil
	}

	token := ""
	if assertion, ok := b.backend.App().AssertionFromRequest(r); ok {
		token = assertion.AccessToken
	}
	if token == "" && b.identities != nil {
		stored, err := b.identities.GetExternalIdentity(httpx.RequestContext(r), auth.ProviderFacebook, id.User.Username)
		if err != nil {
			return r, err
		}
		if stored != nil {
			token = stored.AccessToken
		}
	}
	return WithAccessor(r, &Accessor{UID: id.User.Username, Graph: b.newGraph(token)}), nil
}

// LoginHandler runs only the login step.
func (b *Bridge) LoginHandler() httpx.Middleware {
	return b.middleware(b.login)
}

// LogoutHandler runs only the logout step.
func (b *Bridge) LogoutHandler() httpx.Middleware {
	return b.middleware(b.logout)
}

// AnnotateHandler runs only the annotate step.
func (b *Bridge) AnnotateHandler() httpx.Middleware {
	return b.middleware(b.annotate)
}

// Handler runs login, logout, and annotate in that fixed order, once per
// request.
func (b *Bridge) Handler() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, span := tracer.Start(httpx.RequestContext(r), "fbmiddleware.pass")
			defer span.End()
			r = r.WithContext(ctx)

			for _, run := range []step{b.login, b.logout, b.annotate} {
				enriched, err := run(w, r)
				if err != nil {
					span.RecordError(err)
					httpx.WriteError(w, err)
					return
				}
				r = enriched
			}

			id, _ := identity.FromRequest(r)
			span.SetAttributes(
				attribute.Bool("fbgate.authenticated", id.Authenticated()),
				attribute.Bool("fbgate.facebook_backed", id.FacebookBacked()),
			)
			next.ServeHTTP(w, r)
		})
	}
}

func (b *Bridge) middleware(run step) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			enriched, err := run(w, r)
			if err != nil {
				httpx.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, enriched)
		})
	}
}
