package fbmiddleware

import (
	"net/http"
	"net/url"

	"github.com/fbgate/fbgate/internal/facebook"
	"github.com/fbgate/fbgate/internal/web/httpx"
)

// DebugSignedRequest overwrites the signed_request POST field with a fixed
// payload, simulating an embedded-canvas POST outside production. Install it
// before the composite handler.
func DebugSignedRequest(payload string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r != nil {
				_ = r.ParseForm()
				if r.PostForm == nil {
					r.PostForm = url.Values{}
				}
				r.PostForm.Set(facebook.SignedRequestField, payload)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DebugCookie overwrites the fbsr cookie with a fixed raw value, simulating
// a browser that went through Facebook Login. Install it before the
// composite handler.
func DebugCookie(app facebook.App, value string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r != nil {
				setRequestCookie(r, app.CookieName(), value)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// DebugToken attaches an accessor built from a fixed user id and access
// token. Use it instead of the composite handler.
func DebugToken(uid, token string, graphOpts ...facebook.GraphOption) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		if next == nil {
			next = http.NotFoundHandler()
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = WithAccessor(r, &Accessor{UID: uid, Graph: facebook.NewGraphAPI(token, graphOpts...)})
			next.ServeHTTP(w, r)
		})
	}
}

// setRequestCookie replaces any cookie of the same name on the inbound
// request header.
func setRequestCookie(r *http.Request, name, value string) {
	existing := r.Cookies()
	r.Header.Del("Cookie")
	for _, cookie := range existing {
		if cookie.Name != name {
			r.AddCookie(cookie)
		}
	}
	r.AddCookie(&http.Cookie{Name: name, Value: value})
}
