package auth_test

import (
	"errors"
	"testing"
	"time"

	"whiteboard-backend/internal/auth"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour)

	token, err := m.GenerateAccessToken(7)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != 7 {
		t.Errorf("Expected user 7, got %d", claims.UserID)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	m := auth.NewJWTManager("test-secret", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		if _, err := m.ValidateAccessToken(token); !errors.Is(err, auth.ErrInvalidToken) {
			t.Errorf("Token %q: expected ErrInvalidToken, got %v", token, err)
		}
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issuer := auth.NewJWTManager("secret-one", time.Hour)
	verifier := auth.NewJWTManager("secret-two", time.Hour)

	token, err := issuer.GenerateAccessToken(7)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := verifier.ValidateAccessToken(token); !errors.Is(err, auth.ErrInvalidToken) {
		t.Errorf("Expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	m := auth.NewJWTManager("test-secret", -time.Minute)

	token, err := m.GenerateAccessToken(7)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); !errors.Is(err, auth.ErrExpiredToken) {
		t.Errorf("Expected ErrExpiredToken, got %v", err)
	}
}
