package auth

import (
	"errors"
	"testing"
	"time"
)

func TestTokenService_IssueAndValidate(t *testing.T) {
	t.Parallel()

	service := NewTokenService("test-secret", "registry-test", time.Hour)
	account := &Account{ID: "acc-1", Email: "admin@example.com"}
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	token, expiresAt, err := service.Issue(account, now)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}
	if !expiresAt.Equal(now.Add(time.Hour)) {
		t.Fatalf("unexpected expiry: %v", expiresAt)
	}

	claims, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate returned error: %v", err)
	}
	if claims.AccountID != "acc-1" || claims.Email != "admin@example.com" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.Issuer != "registry-test" {
		t.Fatalf("unexpected issuer: %s", claims.Issuer)
	}
}

func TestTokenService_ValidateRejectsExpiredToken(t *testing.T) {
	t.Parallel()

	service := NewTokenService("test-secret", "registry-test", time.Hour)
	issuedAt := time.Now().UTC().Add(-2 * time.Hour)

	token, _, err := service.Issue(&Account{ID: "acc-1", Email: "admin@example.com"}, issuedAt)
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := service.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_ValidateRejectsForeignSignature(t *testing.T) {
	t.Parallel()

	issuing := NewTokenService("issuing-secret", "registry-test", time.Hour)
	validating := NewTokenService("other-secret", "registry-test", time.Hour)

	token, _, err := issuing.Issue(&Account{ID: "acc-1", Email: "admin@example.com"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("Issue returned error: %v", err)
	}

	if _, err := validating.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenService_ValidateRejectsGarbage(t *testing.T) {
	t.Parallel()

	service := NewTokenService("test-secret", "registry-test", time.Hour)

	for _, token := range []string{"", "not-a-jwt", "aaa.bbb.ccc"} {
		if _, err := service.Validate(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken for %q, got %v", token, err)
		}
	}
}
