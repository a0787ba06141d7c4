// Package facebook provides signed-request parsing and a minimal Graph API client.
package facebook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var (
	// ErrMalformedSignedRequest indicates input that is not sig.payload base64url.
	ErrMalformedSignedRequest = errors.New("malformed signed request")
	// ErrBadSignature indicates an HMAC mismatch against the app secret.
	ErrBadSignature = errors.New("signed request signature mismatch")
	// ErrUnsupportedAlgorithm indicates a payload algorithm other than HMAC-SHA256.
	ErrUnsupportedAlgorithm = errors.New("unsupported signed request algorithm")
)

// Assertion is an external identity claim recovered from a verified signed
// request. It is ephemeral and recomputed on every request.
type Assertion struct {
	UserID      string
	AccessToken string
	Code        string
	IssuedAt    time.Time
}

type signedPayload struct {
	Algorithm  string `json:"algorithm"`
	IssuedAt   int64  `json:"issued_at"`
	UserID     string `json:"user_id"`
	OAuthToken string `json:"oauth_token"`
	Code       string `json:"code"`
}

// ParseSignedRequest verifies and decodes a Facebook signed request.
//
// The wire format is base64url(signature) "." base64url(json payload), where
// the signature is HMAC-SHA256 over the raw payload segment keyed by the app
// secret. Facebook strips base64 padding; both padded and unpadded segments
// are accepted.
func ParseSignedRequest(raw, appSecret string) (Assertion, error) {
	parts := strings.SplitN(strings.TrimSpace(raw), ".", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Assertion{}, ErrMalformedSignedRequest
	}
	signature, err := decodeSegment(parts[0])
	if err != nil {
		return Assertion{}, ErrMalformedSignedRequest
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(parts[1]))
	if !hmac.Equal(signature, mac.Sum(nil)) {
		return Assertion{}, ErrBadSignature
	}

	payloadBytes, err := decodeSegment(parts[1])
	if err != nil {
		return Assertion{}, ErrMalformedSignedRequest
	}
	var payload signedPayload
	if err := json.Unmarshal(payloadBytes, &payload); err != nil {
		return Assertion{}, ErrMalformedSignedRequest
	}
	if !strings.EqualFold(payload.Algorithm, "HMAC-SHA256") {
		return Assertion{}, ErrUnsupportedAlgorithm
	}

	assertion := Assertion{
		UserID:      payload.UserID,
		AccessToken: payload.OAuthToken,
		Code:        payload.Code,
	}
	if payload.IssuedAt > 0 {
		assertion.IssuedAt = time.Unix(payload.IssuedAt, 0).UTC()
	}
	return assertion, nil
}

// SignPayload produces a signed request string for the given payload fields.
// It mirrors the format Facebook issues and exists for tests and local debug
// harnesses.
func SignPayload(userID, oauthToken, code string, issuedAt time.Time, appSecret string) string {
	payload := signedPayload{
		Algorithm:  "HMAC-SHA256",
		UserID:     userID,
		OAuthToken: oauthToken,
		Code:       code,
	}
	if !issuedAt.IsZero() {
		payload.IssuedAt = issuedAt.Unix()
	}
	payloadBytes, _ := json.Marshal(payload)
	payloadSegment := base64.RawURLEncoding.EncodeToString(payloadBytes)

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write([]byte(payloadSegment))
	signature := base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
	return signature + "." + payloadSegment
}

func decodeSegment(segment string) ([]byte, error) {
	return base64.RawURLEncoding.DecodeString(strings.TrimRight(segment, "="))
}
