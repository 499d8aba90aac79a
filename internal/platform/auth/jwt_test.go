package auth

import (
	"testing"
	"time"

	"pushr/internal/platform/config"
)

func TestTokenService_RoundTrip(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "s3cret", AccessTokenTTL: time.Hour})

	token, expiresAt, err := svc.GenerateAccessToken("operator", RoleAdmin)
	if err != nil {
		t.Fatalf("GenerateAccessToken failed: %v", err)
	}
	if time.Until(expiresAt) <= 0 {
		t.Error("expiry should be in the future")
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Role != RoleAdmin || claims.Subject != "operator" {
		t.Errorf("unexpected claims %+v", claims)
	}
}

func TestTokenService_Rejects(t *testing.T) {
	svc := NewTokenService(config.JWTConfig{Secret: "s3cret", AccessTokenTTL: time.Hour})
	other := NewTokenService(config.JWTConfig{Secret: "different", AccessTokenTTL: time.Hour})
	expired := NewTokenService(config.JWTConfig{Secret: "s3cret", AccessTokenTTL: -time.Minute})

	foreign, _, _ := other.GenerateAccessToken("x", RoleAdmin)
	stale, _, _ := expired.GenerateAccessToken("x", RoleAdmin)

	for name, token := range map[string]string{
		"wrong secret": foreign,
		"expired":      stale,
		"garbage":      "not.a.token",
	} {
		if _, err := svc.ValidateToken(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestCheckPassword(t *testing.T) {
	hash, err := HashPassword("hunter2")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	if err := CheckPassword(hash, "hunter2"); err != nil {
		t.Errorf("correct password rejected: %v", err)
	}
	if err := CheckPassword(hash, "wrong"); err != ErrInvalidCredentials {
		t.Errorf("wrong password: got %v", err)
	}
	if err := CheckPassword("", "hunter2"); err != ErrInvalidCredentials {
		t.Errorf("empty hash: got %v", err)
	}
}
