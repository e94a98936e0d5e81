package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignAndParse(t *testing.T) {
	secret := []byte("test-secret")

	token, err := Sign("user-1", "driver", secret, time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	identity, err := Parse(token, secret)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if identity.UserID != "user-1" {
		t.Fatalf("expected user-1, got %s", identity.UserID)
	}
	if identity.Role != "driver" {
		t.Fatalf("expected role driver, got %s", identity.Role)
	}
}

func TestParseRejectsWrongSecret(t *testing.T) {
	token, err := Sign("user-1", "driver", []byte("right"), time.Hour)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := Parse(token, []byte("wrong")); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestParseRejectsExpiredToken(t *testing.T) {
	secret := []byte("test-secret")

	token, err := Sign("user-1", "driver", secret, -time.Minute)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	if _, err := Parse(token, secret); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestParseRejectsEmptyToken(t *testing.T) {
	if _, err := Parse("", []byte("secret")); !errors.Is(err, ErrMissingToken) {
		t.Fatalf("expected ErrMissingToken, got %v", err)
	}
}
