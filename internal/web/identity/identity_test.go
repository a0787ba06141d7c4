package identity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/storage/memory"
	"github.com/fbgate/fbgate/internal/auth/user"
	"github.com/fbgate/fbgate/internal/web/sessioncookie"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newTestManager(t *testing.T) (*session.Manager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	manager := session.NewManager(store, store, testKey, session.WithClock(func() time.Time {
		return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	}))
	return manager, store
}

func TestMiddlewareAnonymousWithoutCookie(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)
	var seen Identity
	var present bool
	handler := Middleware(manager)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, present = FromRequest(r)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if !present {
		t.Fatal("expected identity to be present")
	}
	if seen.Authenticated() {
		t.Fatalf("expected anonymous identity, got %+v", seen)
	}
}

func TestMiddlewareResolvesSession(t *testing.T) {
	t.Parallel()

	manager, store := newTestManager(t)
	ctx := context.Background()
	u := user.User{ID: "u1", Username: "100044"}
	if err := store.PutUser(ctx, u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	_, token, err := manager.Issue(ctx, u, session.BackendFacebook)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	var seen Identity
	handler := Middleware(manager)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = FromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: token})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !seen.Authenticated() {
		t.Fatalf("expected authenticated identity, got %+v", seen)
	}
	if !seen.FacebookBacked() {
		t.Fatalf("expected facebook-backed identity")
	}
	if seen.User.ID != "u1" {
		t.Fatalf("user id = %q, want %q", seen.User.ID, "u1")
	}
}

func TestMiddlewareGarbageCookieIsAnonymous(t *testing.T) {
	t.Parallel()

	manager, _ := newTestManager(t)
	var seen Identity
	handler := Middleware(manager)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen, _ = FromRequest(r)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessioncookie.Name, Value: "garbage"})
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if seen.Authenticated() {
		t.Fatalf("expected anonymous identity for garbage token")
	}
}

func TestFromRequestWithoutMiddleware(t *testing.T) {
	t.Parallel()

	if _, ok := FromRequest(httptest.NewRequest(http.MethodGet, "/", nil)); ok {
		t.Fatal("expected no identity without the middleware")
	}
	if _, ok := FromRequest(nil); ok {
		t.Fatal("expected no identity for nil request")
	}
}

func TestFacebookBacked(t *testing.T) {
	t.Parallel()

	u := &user.User{ID: "u1"}
	fb := Identity{User: u, Session: &session.Session{ID: "s1", Backend: session.BackendFacebook}}
	local := Identity{User: u, Session: &session.Session{ID: "s2", Backend: session.BackendLocal}}

	if !fb.FacebookBacked() {
		t.Fatal("expected facebook-backed identity")
	}
	if local.FacebookBacked() {
		t.Fatal("local session must not be facebook-backed")
	}
	if (Identity{}).FacebookBacked() {
		t.Fatal("anonymous identity must not be facebook-backed")
	}
}
