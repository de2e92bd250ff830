// Package auth verifies the tokens the workspace host signs for each
// installation of the extension.
package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// HostTokens issues and validates HS256 host tokens. The token subject is
// the installation id.
type HostTokens struct {
	secret []byte
	issuer string
}

// NewHostTokens creates a new host token manager.
// secret must be at least 32 characters for HS256 security.
func NewHostTokens(secret string, issuer string) *HostTokens {
	return &HostTokens{
		secret: []byte(secret),
		issuer: issuer,
	}
}

// Issue creates a signed token for installationID valid for ttl.
func (m *HostTokens) Issue(installationID string, ttl time.Duration) (string, error) {
	if installationID == "" {
		return "", fmt.Errorf("installation id is empty")
	}

	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   installationID,
		Issuer:    m.issuer,
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(now),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	return signed, nil
}

// Verify parses and validates a host token and returns its installation id.
func (m *HostTokens) Verify(tokenString string) (string, error) {
	if tokenString == "" {
		return "", fmt.Errorf("token is empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.RegisteredClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return "", fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*jwt.RegisteredClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	if claims.Subject == "" {
		return "", fmt.Errorf("token has no subject")
	}

	return claims.Subject, nil
}
