package security

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestSandboxToken_ScopedToSession(t *testing.T) {
	m := NewSandboxTokenManager([]byte("sandbox-secret"), time.Hour)

	sessionID := uuid.New()
	sandboxID := uuid.New()

	token, err := m.Mint(sessionID, sandboxID)
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	claims, err := m.Verify(token, sessionID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.SandboxID != sandboxID {
		t.Errorf("sandbox id mismatch: got %s, want %s", claims.SandboxID, sandboxID)
	}

	// The same token must never authorize a different session.
	if _, err := m.Verify(token, uuid.New()); err == nil {
		t.Error("expected token to be rejected for another session")
	}
}

func TestSandboxToken_WrongSecret(t *testing.T) {
	sessionID := uuid.New()
	token, err := NewSandboxTokenManager([]byte("secret-a"), time.Hour).Mint(sessionID, uuid.New())
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := NewSandboxTokenManager([]byte("secret-b"), time.Hour).Verify(token, sessionID); err == nil {
		t.Error("expected token to be rejected under wrong secret")
	}
}

func TestSandboxToken_Expired(t *testing.T) {
	sessionID := uuid.New()
	m := NewSandboxTokenManager([]byte("sandbox-secret"), -time.Minute)

	token, err := m.Mint(sessionID, uuid.New())
	if err != nil {
		t.Fatalf("mint failed: %v", err)
	}

	if _, err := m.Verify(token, sessionID); err == nil {
		t.Error("expected expired token to be rejected")
	}
}

func TestSandboxToken_Garbage(t *testing.T) {
	m := NewSandboxTokenManager([]byte("sandbox-secret"), time.Hour)
	if _, err := m.Verify("not-a-jwt", uuid.New()); err == nil {
		t.Error("expected garbage token to be rejected")
	}
}
