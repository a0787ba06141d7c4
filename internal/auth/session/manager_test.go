package session_test

import (
	"context"
	"testing"
	"time"

	"github.com/fbgate/fbgate/internal/auth/session"
	"github.com/fbgate/fbgate/internal/auth/storage/memory"
	"github.com/fbgate/fbgate/internal/auth/user"
)

var managerKey = []byte("0123456789abcdef0123456789abcdef")

func fixedClock() time.Time {
	return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
}

func newTestManager(t *testing.T, store *memory.Store, opts ...session.ManagerOption) *session.Manager {
	t.Helper()
	base := []session.ManagerOption{session.WithClock(fixedClock)}
	return session.NewManager(store, store, managerKey, append(base, opts...)...)
}

func seedUser(t *testing.T, store *memory.Store) user.User {
	t.Helper()
	u := user.User{ID: "u1", Username: "100044", DisplayName: "Pat"}
	if err := store.PutUser(context.Background(), u); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return u
}

func TestIssueAndResolve(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	manager := newTestManager(t, store)
	u := seedUser(t, store)
	ctx := context.Background()

	record, token, err := manager.Issue(ctx, u, session.BackendFacebook)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if record.Backend != session.BackendFacebook {
		t.Fatalf("backend = %q, want %q", record.Backend, session.BackendFacebook)
	}
	if !record.ExpiresAt.Equal(fixedClock().Add(session.DefaultTTL)) {
		t.Fatalf("expires at = %v, want default ttl", record.ExpiresAt)
	}

	resolved, resolvedUser, err := manager.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved == nil || resolved.ID != record.ID {
		t.Fatalf("resolved session = %+v, want id %q", resolved, record.ID)
	}
	if resolvedUser == nil || resolvedUser.ID != u.ID {
		t.Fatalf("resolved user = %+v, want id %q", resolvedUser, u.ID)
	}
}

func TestIssueRejectsUnknownBackend(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	manager := newTestManager(t, store)

	if _, _, err := manager.Issue(context.Background(), seedUser(t, store), session.Backend("carrier-pigeon")); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestResolveAnonymousPaths(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	for _, token := range []string{"", "garbage"} {
		record, resolvedUser, err := manager.Resolve(ctx, token)
		if err != nil || record != nil || resolvedUser != nil {
			t.Fatalf("Resolve(%q) = %v %v %v, want anonymous", token, record, resolvedUser, err)
		}
	}
}

func TestResolveRevokedSession(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	record, token, err := manager.Issue(ctx, seedUser(t, store), session.BackendFacebook)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := manager.Revoke(ctx, record.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	resolved, resolvedUser, err := manager.Resolve(ctx, token)
	if err != nil || resolved != nil || resolvedUser != nil {
		t.Fatalf("expected anonymous after revoke, got %v %v %v", resolved, resolvedUser, err)
	}
}

func TestResolveExpiredSessionIsAnonymousAndPruned(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	current := fixedClock()
	manager := session.NewManager(store, store, managerKey,
		session.WithClock(func() time.Time { return current }),
		session.WithTTL(time.Hour),
	)
	ctx := context.Background()

	record, token, err := manager.Issue(ctx, seedUser(t, store), session.BackendFacebook)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	current = fixedClock().Add(30 * time.Minute)
	if resolved, _, err := manager.Resolve(ctx, token); err != nil || resolved == nil {
		t.Fatalf("expected live session, got %v %v", resolved, err)
	}

	current = fixedClock().Add(2 * time.Hour)
	resolved, resolvedUser, err := manager.Resolve(ctx, token)
	if err != nil || resolved != nil || resolvedUser != nil {
		t.Fatalf("expected anonymous after expiry, got %v %v %v", resolved, resolvedUser, err)
	}
	if stored, err := store.GetSession(ctx, record.ID); err != nil || stored != nil {
		t.Fatalf("expected expired session pruned, got %v %v", stored, err)
	}
}

func TestResolveMissingUserIsAnonymous(t *testing.T) {
	t.Parallel()

	store := memory.NewStore()
	manager := newTestManager(t, store)
	ctx := context.Background()

	_, token, err := manager.Issue(ctx, user.User{ID: "ghost", Username: "ghost"}, session.BackendFacebook)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	resolved, resolvedUser, err := manager.Resolve(ctx, token)
	if err != nil || resolved != nil || resolvedUser != nil {
		t.Fatalf("expected anonymous for missing user, got %v %v %v", resolved, resolvedUser, err)
	}
}
