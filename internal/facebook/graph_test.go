package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
)

func TestGraphGetSendsAccessToken(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/me")
		}
		if got := r.URL.Query().Get("access_token"); got != "token-abc" {
			t.Errorf("access_token = %q, want %q", got, "token-abc")
		}
		if got := r.URL.Query().Get("fields"); got != "id,name" {
			t.Errorf("fields = %q, want %q", got, "id,name")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"100044","name":"Pat"}`))
	}))
	defer server.Close()

	graph := NewGraphAPI("token-abc", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	var me struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := graph.Get(context.Background(), "me", url.Values{"fields": {"id,name"}}, &me); err != nil {
		t.Fatalf("graph get: %v", err)
	}
	if me.ID != "100044" || me.Name != "Pat" {
		t.Fatalf("decoded = %+v, want id=100044 name=Pat", me)
	}
}

func TestGraphGetWithoutTokenOmitsParameter(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("access_token") {
			t.Errorf("unexpected access_token parameter")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	graph := NewGraphAPI("", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if err := graph.Get(context.Background(), "/some-page", nil, nil); err != nil {
		t.Fatalf("graph get: %v", err)
	}
}

func TestGraphGetSurfacesGraphError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid OAuth access token.","type":"OAuthException","code":190}}`))
	}))
	defer server.Close()

	graph := NewGraphAPI("expired", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	err := graph.Get(context.Background(), "me", nil, nil)
	if err == nil {
		t.Fatalf("expected error")
	}
	if want := "graph error 190: Invalid OAuth access token."; err.Error() != want {
		t.Fatalf("error = %q, want %q", err.Error(), want)
	}
}

func TestExchangeCode(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/access_token" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/oauth/access_token")
		}
		query := r.URL.Query()
		if query.Get("client_id") != "12345" || query.Get("client_secret") != testSecret {
			t.Errorf("unexpected client credentials %v", query)
		}
		if query.Get("code") != "exchange-me" {
			t.Errorf("code = %q, want %q", query.Get("code"), "exchange-me")
		}
		if got, ok := query["redirect_uri"]; !ok || got[0] != "" {
			t.Errorf("expected empty redirect_uri, got %v", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"token-xyz","token_type":"bearer","expires_in":5183944}`))
	}))
	defer server.Close()

	graph := NewGraphAPI("", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	token, err := graph.ExchangeCode(context.Background(), testApp, "exchange-me")
	if err != nil {
		t.Fatalf("exchange code: %v", err)
	}
	if token != "token-xyz" {
		t.Fatalf("token = %q, want %q", token, "token-xyz")
	}
}

func TestExchangeCodeFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	graph := NewGraphAPI("", WithBaseURL(server.URL), WithHTTPClient(server.Client()))
	if _, err := graph.ExchangeCode(context.Background(), testApp, "bad-code"); err == nil {
		t.Fatalf("expected error")
	}
	if _, err := graph.ExchangeCode(context.Background(), testApp, "  "); err == nil {
		t.Fatalf("expected error for empty code")
	}
}
