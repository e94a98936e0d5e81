// Package auth parses externally issued identity tokens. The service does
// not run a login flow; it trusts the auth provider's HS256 tokens and
// extracts the subject and role for advisory checks.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingToken = errors.New("missing token")
)

type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// Identity is what handlers see after the middleware has run.
type Identity struct {
	UserID string
	Role   string
}

// Sign issues a token. Used by tests and local tooling; production tokens
// come from the auth provider.
func Sign(userID, role string, secret []byte, ttl time.Duration) (string, error) {
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

// Parse validates the token and returns the identity it carries.
func Parse(tokenStr string, secret []byte) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrMissingToken
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	return &Identity{
		UserID: claims.Subject,
		Role:   claims.Role,
	}, nil
}
