package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"io"
	"time"

	"github.com/dmitrijs2005/skillauth/internal/clock"
	"github.com/dmitrijs2005/skillauth/internal/common"
	"github.com/dmitrijs2005/skillauth/internal/server/models"
)

// RefreshTokenSize is the number of random bytes behind a refresh token.
const RefreshTokenSize = 64

// RefreshManager mints and checks refresh tokens. Storing the token against
// the owning account is the caller's job.
type RefreshManager struct {
	lifetime time.Duration
	clock    clock.Clock
	random   io.Reader
}

// NewRefreshManager builds a manager issuing tokens valid for lifetime.
// Nil clk and random fall back to the system clock and crypto/rand.
func NewRefreshManager(lifetime time.Duration, clk clock.Clock, random io.Reader) *RefreshManager {
	if clk == nil {
		clk = clock.System()
	}
	if random == nil {
		random = rand.Reader
	}
	return &RefreshManager{lifetime: lifetime, clock: clk, random: random}
}

// Issue returns a fresh base64-encoded value expiring at now + lifetime.
func (m *RefreshManager) Issue() (*models.RefreshToken, error) {
	value, err := common.MakeRandBase64String(m.random, RefreshTokenSize)
	if err != nil {
		return nil, err
	}
	return &models.RefreshToken{Value: value, ExpiresAt: m.clock.Now().Add(m.lifetime)}, nil
}

// Rotate replaces the owner's current token. The previous value stops
// working as soon as the caller persists the new one.
func (m *RefreshManager) Rotate(owner *models.Account) (*models.RefreshToken, error) {
	return m.Issue()
}

// Validate reports whether supplied equals the owner's stored token and the
// stored expiry is still ahead of now. Mismatch and expiry are not
// distinguished.
func (m *RefreshManager) Validate(owner *models.Account, supplied string) bool {
	if owner == nil || owner.RefreshToken == "" || supplied == "" {
		return false
	}
	match := subtle.ConstantTimeCompare([]byte(supplied), []byte(owner.RefreshToken)) == 1
	return match && m.clock.Now().Before(owner.RefreshTokenExpiresAt)
}

// Revoked returns the value persisted by logout: empty and already expired.
func (m *RefreshManager) Revoked() *models.RefreshToken {
	return &models.RefreshToken{Value: "", ExpiresAt: m.clock.Now()}
}
