package cryptox

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// SecretSize is the byte length of generated server secrets (the pepper and
// the dev-only JWT signing secret). 32 bytes meets the HS256 key floor.
const SecretSize = 32

// RandomString returns size random bytes, base64url encoded without padding.
func RandomString(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: random size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: read random: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// FingerprintToken returns the base64url SHA-256 of a refresh token. The
// ledger stores and looks up fingerprints only, so a leaked table cannot be
// replayed.
func FingerprintToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
