// Package fbmiddleware bridges the session layer with Facebook Login.
//
// Each handler runs once per request and owns no state beyond the request and
// the session store. The composite Handler runs login, logout, and annotate
// in that fixed order.
package fbmiddleware

import (
	"context"
	"net/http"

	"github.com/fbgate/fbgate/internal/facebook"
)

// Accessor pairs a Facebook user id with a Graph API client for that user.
// It is attached to the request on annotation and discarded with it.
type Accessor struct {
	UID   string
	Graph *facebook.GraphAPI
}

type accessorKey struct{}

// WithAccessor returns a request whose context carries the accessor.
func WithAccessor(r *http.Request, accessor *Accessor) *http.Request {
	if r == nil || accessor == nil {
		return r
	}
	return r.WithContext(context.WithValue(r.Context(), accessorKey{}, accessor))
}

// FacebookFromRequest returns the accessor attached to the request, if any.
func FacebookFromRequest(r *http.Request) (*Accessor, bool) {
	if r == nil {
		return nil, false
	}
	return FacebookFromContext(r.Context())
}

// FacebookFromContext returns the accessor stored in ctx, if any.
func FacebookFromContext(ctx context.Context) (*Accessor, bool) {
	if ctx == nil {
		return nil, false
	}
	accessor, ok := ctx.Value(accessorKey{}).(*Accessor)
	if !ok || accessor == nil {
		return nil, false
	}
	return accessor, true
}
