package facebook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fbgate/fbgate/internal/platform/metrics"
)

const defaultGraphBaseURL = "https://graph.facebook.com"

// GraphAPI is a minimal Facebook Graph API client bound to one access token.
// The zero token is valid; such a client can only read public objects.
type GraphAPI struct {
	accessToken string
	baseURL     string
	httpClient  *http.Client
}

// GraphOption customizes a GraphAPI client.
type GraphOption func(*GraphAPI)

// WithBaseURL overrides the Graph API endpoint, primarily for tests.
func WithBaseURL(baseURL string) GraphOption {
	return func(g *GraphAPI) {
		g.baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	}
}

// WithHTTPClient overrides the HTTP client used for Graph calls.
func WithHTTPClient(client *http.Client) GraphOption {
	return func(g *GraphAPI) {
		if client != nil {
			g.httpClient = client
		}
	}
}

// NewGraphAPI creates a Graph API client for the given access token.
func NewGraphAPI(accessToken string, opts ...GraphOption) *GraphAPI {
	g := &GraphAPI{
		accessToken: accessToken,
		baseURL:     defaultGraphBaseURL,
		httpClient:  &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// AccessToken returns the token the client was constructed with.
func (g *GraphAPI) AccessToken() string {
	if g == nil {
		return ""
	}
	return g.accessToken
}

// Get performs a Graph API GET against the given object path and decodes the
// JSON response into dst when dst is non-nil.
func (g *GraphAPI) Get(ctx context.Context, path string, params url.Values, dst any) error {
	if g == nil {
		return errors.New("graph client is not configured")
	}
	query := url.Values{}
	for key, values := range params {
		for _, value := range values {
			query.Add(key, value)
		}
	}
	if g.accessToken != "" {
		query.Set("access_token", g.accessToken)
	}

	endpoint := g.baseURL + "/" + strings.TrimLeft(path, "/")
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build graph request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.GraphRequestsTotal.WithLabelValues("error").Inc()
		return fmt.Errorf("graph request: %w", err)
	}
	defer resp.Body.Close()
	metrics.GraphRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		var failure struct {
			Error struct {
				Message string `json:"message"`
				Type    string `json:"type"`
				Code    int    `json:"code"`
			} `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&failure); err == nil && failure.Error.Message != "" {
			return fmt.Errorf("graph error %d: %s", failure.Error.Code, failure.Error.Message)
		}
		return fmt.Errorf("graph request failed with status %d", resp.StatusCode)
	}
	if dst == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode graph response: %w", err)
	}
	return nil
}

// ExchangeCode exchanges a signed-request code for an access token. Codes
// embedded in signed requests are issued with an empty redirect URI.
func (g *GraphAPI) ExchangeCode(ctx context.Context, app App, code string) (string, error) {
	if g == nil {
		return "", errors.New("graph client is not configured")
	}
	if strings.TrimSpace(code) == "" {
		return "", errors.New("missing code")
	}
	query := url.Values{}
	query.Set("client_id", app.ID)
	query.Set("client_secret", app.Secret)
	query.Set("redirect_uri", "")
	query.Set("code", code)

	endpoint := g.baseURL + "/oauth/access_token?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.GraphRequestsTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()
	metrics.GraphRequestsTotal.WithLabelValues(fmt.Sprintf("%d", resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token exchange failed with status %d", resp.StatusCode)
	}
	var payload struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode token response: %w", err)
	}
	if payload.AccessToken == "" {
		return "", errors.New("missing access token")
	}
	return payload.AccessToken, nil
}
