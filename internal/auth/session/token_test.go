package session

import (
	"errors"
	"testing"
	"time"
)

var tokenKey = []byte("0123456789abcdef0123456789abcdef")

func TestTokenRoundTrip(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := MintToken(tokenKey, "s1", issued, issued.Add(time.Hour))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	sid, err := VerifyToken(tokenKey, token, func() time.Time { return issued.Add(time.Minute) })
	if err != nil {
		t.Fatalf("verify token: %v", err)
	}
	if sid != "s1" {
		t.Fatalf("session id = %q, want %q", sid, "s1")
	}
}

func TestVerifyTokenRejectsWrongKey(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := MintToken(tokenKey, "s1", issued, issued.Add(time.Hour))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if _, err := VerifyToken([]byte("another-key"), token, func() time.Time { return issued }); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyTokenRejectsExpired(t *testing.T) {
	t.Parallel()

	issued := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	token, err := MintToken(tokenKey, "s1", issued, issued.Add(time.Hour))
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	if _, err := VerifyToken(tokenKey, token, func() time.Time { return issued.Add(2 * time.Hour) }); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected invalid token, got %v", err)
	}
}

func TestVerifyTokenRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, raw := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := VerifyToken(tokenKey, raw, nil); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("VerifyToken(%q) = %v, want invalid", raw, err)
		}
	}
}

func TestMintTokenRequiresKeyAndID(t *testing.T) {
	t.Parallel()

	now := time.Now()
	if _, err := MintToken(nil, "s1", now, now.Add(time.Hour)); err == nil {
		t.Fatal("expected error for missing key")
	}
	if _, err := MintToken(tokenKey, "  ", now, now.Add(time.Hour)); err == nil {
		t.Fatal("expected error for missing session id")
	}
}
