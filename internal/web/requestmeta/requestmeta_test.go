package requestmeta

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIsHTTPS(t *testing.T) {
	t.Parallel()

	if IsHTTPS(nil) {
		t.Fatalf("nil request must not be https")
	}

	httpsReq := httptest.NewRequest(http.MethodGet, "https://app.example.test", nil)
	if !IsHTTPS(httpsReq) {
		t.Fatalf("expected https request")
	}

	httpReq := httptest.NewRequest(http.MethodGet, "http://app.example.test", nil)
	if IsHTTPS(httpReq) {
		t.Fatalf("expected http request")
	}
}

func TestIsHTTPSWithPolicyForwardedProto(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "http://app.example.test", nil)
	req.Header.Set("X-Forwarded-Proto", "https")

	if IsHTTPS(req) {
		t.Fatalf("forwarded proto must be ignored without the policy")
	}
	if !IsHTTPSWithPolicy(req, SchemePolicy{TrustForwardedProto: true}) {
		t.Fatalf("expected https with trusted forwarded proto")
	}
}
