package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/calegray/codedock/internal/domain"
)

// SandboxClaims scope a sandbox bearer token to exactly one session
// and one sandbox instance.
type SandboxClaims struct {
	SessionID uuid.UUID `json:"sid"`
	SandboxID uuid.UUID `json:"sbx"`
	jwt.RegisteredClaims
}

// SandboxTokenManager mints and verifies per-sandbox bearer tokens.
// A token is minted once at provisioning time and is only accepted for
// operations targeting its own session.
type SandboxTokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewSandboxTokenManager creates a new sandbox token manager
func NewSandboxTokenManager(secret []byte, ttl time.Duration) *SandboxTokenManager {
	return &SandboxTokenManager{secret: secret, ttl: ttl}
}

// Mint generates a bearer token bound to the session/sandbox pair.
func (m *SandboxTokenManager) Mint(sessionID, sandboxID uuid.UUID) (string, error) {
	now := time.Now()
	claims := SandboxClaims{
		SessionID: sessionID,
		SandboxID: sandboxID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sandboxID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    "codedock",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign sandbox token: %w", err)
	}
	return signed, nil
}

// Verify parses the token and checks it is scoped to the given session.
// Every failure mode collapses to domain.ErrAuth.
func (m *SandboxTokenManager) Verify(tokenString string, sessionID uuid.UUID) (*SandboxClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SandboxClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	})
	if err != nil {
		return nil, domain.ErrAuth
	}

	claims, ok := token.Claims.(*SandboxClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrAuth
	}

	if claims.SessionID != sessionID {
		return nil, domain.ErrAuth
	}

	return claims, nil
}
