package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/clinicdesk/payverify/internal/config"
)

func newTestAuthService(t *testing.T) *Service {
	t.Helper()
	return NewService(config.AuthConfig{
		JWTSecret: "test-secret-at-least-32-chars-long",
		JWTExpiry: config.Duration{Duration: 1 * time.Hour},
	})
}

func TestIssueAndValidate(t *testing.T) {
	svc := newTestAuthService(t)

	token, err := svc.IssueToken("ops@clinicdesk", RoleAdmin, 0)
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Fatalf("token does not look like a JWT: %q", token)
	}

	id, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id.Subject != "ops@clinicdesk" || id.Role != RoleAdmin || id.TokenID == "" {
		t.Errorf("unexpected identity: %+v", id)
	}
}

func TestValidateRejects(t *testing.T) {
	svc := newTestAuthService(t)
	other := NewService(config.AuthConfig{JWTSecret: "a-different-secret-of-32-characters!"})

	foreign, err := other.IssueToken("x", RoleAdmin, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	expired, err := svc.IssueToken("x", RoleAdmin, time.Nanosecond)
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(10 * time.Millisecond)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Role: RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{Subject: "x"}})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatal(err)
	}

	for name, tok := range map[string]string{
		"garbage":      "not-a-token",
		"empty":        "",
		"wrong secret": foreign,
		"expired":      expired,
		"alg none":     unsigned,
	} {
		if _, err := svc.ValidateToken(tok); !errors.Is(err, ErrUnauthorized) {
			t.Errorf("%s: expected ErrUnauthorized, got %v", name, err)
		}
	}
}

func TestIssueUnknownRole(t *testing.T) {
	svc := newTestAuthService(t)
	if _, err := svc.IssueToken("x", "root", 0); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestDisabledService(t *testing.T) {
	svc := NewService(config.AuthConfig{})
	if svc.Enabled() {
		t.Fatal("expected disabled service")
	}
	if _, err := svc.IssueToken("x", RoleAdmin, 0); !errors.Is(err, ErrNotEnabled) {
		t.Errorf("IssueToken: expected ErrNotEnabled, got %v", err)
	}
	if _, err := svc.ValidateToken("a.b.c"); !errors.Is(err, ErrNotEnabled) {
		t.Errorf("ValidateToken: expected ErrNotEnabled, got %v", err)
	}
}
