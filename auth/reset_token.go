package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

// ResetTokenLength is the number of random bytes behind a reset token,
// 160 bits of entropy.
const ResetTokenLength = 20

// DefaultResetTokenTTL is how long a reset token stays valid.
const DefaultResetTokenTTL = 10 * time.Minute

// ResetTokenGenerator mints single-use password recovery tokens. The raw
// token goes to the user once; only its sha256 hash is stored, so a leaked
// users table does not leak usable tokens.
type ResetTokenGenerator struct {
	ttl time.Duration
}

// NewResetTokenGenerator creates a generator with the given validity window.
// A zero or negative window falls back to the default.
func NewResetTokenGenerator(ttl time.Duration) *ResetTokenGenerator {
	if ttl <= 0 {
		ttl = DefaultResetTokenTTL
	}
	return &ResetTokenGenerator{ttl: ttl}
}

// Generate returns the raw token, its stored hash, and the expiry.
func (g *ResetTokenGenerator) Generate() (raw, hash string, expire time.Time, err error) {
	buf := make([]byte, ResetTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", "", time.Time{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to generate reset token")
	}

	raw = hex.EncodeToString(buf)
	return raw, HashResetToken(raw), time.Now().Add(g.ttl), nil
}

// HashResetToken computes the deterministic hash used to match a
// client-supplied raw token against the stored one. The hash can be fast
// because the entropy lives in the random token, not in the hash function.
func HashResetToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
