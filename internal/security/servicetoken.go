package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/calegray/codedock/internal/domain"
)

// ServiceTokenWindow is the accepted clock-skew window on either side
// of the token timestamp.
const ServiceTokenWindow = 5 * time.Minute

// ServiceTokenManager mints and verifies short-lived internal service
// tokens of the form "timestamp.signature", where the signature is
// HMAC-SHA256 over the decimal unix timestamp.
type ServiceTokenManager struct {
	secret []byte
	now    func() time.Time
}

// NewServiceTokenManager creates a manager over the shared secret.
func NewServiceTokenManager(secret []byte) *ServiceTokenManager {
	return &ServiceTokenManager{secret: secret, now: time.Now}
}

// Mint returns a fresh token valid for the configured window.
func (m *ServiceTokenManager) Mint() string {
	ts := strconv.FormatInt(m.now().Unix(), 10)
	return ts + "." + m.sign(ts)
}

// Verify checks a token's shape, timestamp window and signature.
// All failure modes return the same error so a caller probing the
// endpoint learns nothing about which check failed.
func (m *ServiceTokenManager) Verify(token string) error {
	ts, sig, ok := strings.Cut(token, ".")
	if !ok {
		return domain.ErrAuth
	}

	issued, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return domain.ErrAuth
	}

	age := m.now().Sub(time.Unix(issued, 0))
	if age > ServiceTokenWindow || age < -ServiceTokenWindow {
		return domain.ErrAuth
	}

	expected := m.sign(ts)
	if !hmac.Equal([]byte(sig), []byte(expected)) {
		return domain.ErrAuth
	}

	return nil
}

func (m *ServiceTokenManager) sign(ts string) string {
	mac := hmac.New(sha256.New, m.secret)
	mac.Write([]byte(ts))
	return hex.EncodeToString(mac.Sum(nil))
}

// WithClock overrides the manager's clock. Test hook.
func (m *ServiceTokenManager) WithClock(now func() time.Time) *ServiceTokenManager {
	m.now = now
	return m
}
