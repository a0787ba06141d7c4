package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "fbgate"

// ErrInvalidToken indicates a session token that failed verification.
var ErrInvalidToken = errors.New("invalid session token")

type tokenClaims struct {
	jwt.RegisteredClaims
	SessionID string `json:"sid"`
}

// MintToken signs a session token carrying the session id.
func MintToken(key []byte, sessionID string, issuedAt, expiresAt time.Time) (string, error) {
	if len(key) == 0 {
		return "", errors.New("session signing key is required")
	}
	if strings.TrimSpace(sessionID) == "" {
		return "", errors.New("session id is required")
	}
	claims := tokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt.UTC()),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		},
		SessionID: sessionID,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return token, nil
}

// VerifyToken verifies a session token and returns the embedded session id.
func VerifyToken(key []byte, token string, now func() time.Time) (string, error) {
	if now == nil {
		now = time.Now
	}
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now().UTC() }),
	)
	if err != nil || !parsed.Valid {
		return "", ErrInvalidToken
	}
	if strings.TrimSpace(claims.SessionID) == "" {
		return "", ErrInvalidToken
	}
	return claims.SessionID, nil
}
