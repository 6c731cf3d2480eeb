package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager(accessTTL, refreshTTL time.Duration) *JWTManager {
	return NewJWTManager(strings.Repeat("a", 32), strings.Repeat("b", 32), accessTTL, refreshTTL)
}

func TestAccessTokenRoundtrip(t *testing.T) {
	mgr := newTestManager(time.Minute, time.Hour)
	subject := uuid.NewString()

	token, err := mgr.GenerateAccessToken(subject, "admin@example.com", "ADMIN")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	claims, err := mgr.ParseAccessToken(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	if claims.Subject != subject {
		t.Fatalf("expected subject %s, got %s", subject, claims.Subject)
	}
	if claims.Email != "admin@example.com" || claims.Role != "ADMIN" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestAccessTokenRejectsWrongSecret(t *testing.T) {
	mgr := newTestManager(time.Minute, time.Hour)
	other := NewJWTManager(strings.Repeat("x", 32), strings.Repeat("y", 32), time.Minute, time.Hour)

	token, err := mgr.GenerateAccessToken(uuid.NewString(), "user@example.com", "VIEWER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := other.ParseAccessToken(token); err == nil {
		t.Fatal("expected error for wrong secret")
	}
}

func TestAccessTokenRejectsExpired(t *testing.T) {
	mgr := newTestManager(-time.Minute, time.Hour)

	token, err := mgr.GenerateAccessToken(uuid.NewString(), "user@example.com", "VIEWER")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	if _, err := mgr.ParseAccessToken(token); err == nil {
		t.Fatal("expected error for expired token")
	}
}

func TestRefreshTokenNotAcceptedAsAccess(t *testing.T) {
	mgr := newTestManager(time.Minute, time.Hour)

	refresh, err := mgr.GenerateRefreshToken(uuid.NewString())
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}

	if _, err := mgr.ParseAccessToken(refresh); err == nil {
		t.Fatal("refresh token must not validate as access token")
	}

	if _, err := mgr.ParseRefreshToken(refresh); err != nil {
		t.Fatalf("parse refresh: %v", err)
	}
}
