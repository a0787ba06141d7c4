package facebook

import (
	"net/http"
	"strings"
)

// SignedRequestField is the POST field carrying a signed request.
const SignedRequestField = "signed_request"

const cookiePrefix = "fbsr_"

// App identifies the Facebook application the bridge integrates with.
type App struct {
	ID     string
	Secret string
}

// CookieName returns the signed-request cookie name for this application.
func (a App) CookieName() string {
	return cookiePrefix + a.ID
}

// AssertionFromRequest recovers an assertion from the signed_request POST
// field, falling back to the fbsr cookie. Absence or verification failure
// yields no assertion; these are normal negative-path conditions.
func (a App) AssertionFromRequest(r *http.Request) (Assertion, bool) {
	if r == nil {
		return Assertion{}, false
	}
	if raw := strings.TrimSpace(r.PostFormValue(SignedRequestField)); raw != "" {
		if assertion, err := ParseSignedRequest(raw, a.Secret); err == nil && assertion.UserID != "" {
			return assertion, true
		}
	}
	return a.AssertionFromCookie(r)
}

// AssertionFromCookie recovers an assertion from the fbsr cookie only. The
// logout check uses this narrower form: a cleared cookie must read as absent
// even when a POST payload is present.
func (a App) AssertionFromCookie(r *http.Request) (Assertion, bool) {
	if r == nil {
		return Assertion{}, false
	}
	cookie, err := r.Cookie(a.CookieName())
	if err != nil || cookie == nil {
		return Assertion{}, false
	}
	raw := strings.TrimSpace(cookie.Value)
	if raw == "" {
		return Assertion{}, false
	}
	assertion, err := ParseSignedRequest(raw, a.Secret)
	if err != nil || assertion.UserID == "" {
		return Assertion{}, false
	}
	return assertion, true
}
