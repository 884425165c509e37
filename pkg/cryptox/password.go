package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

var (
	ErrPasswordMismatch = errors.New("password does not match")
	ErrMalformedHash    = errors.New("invalid hash format")
)

// Upper bounds accepted when decoding a stored hash, so a tampered record
// cannot make verification allocate or spin without limit.
const (
	maxMemory     = 256 * 1024 // KiB
	maxIterations = 16
	maxKeyLength  = 128
)

// PasswordHasher turns plaintext passwords into one-way encoded hashes and
// checks candidates against them.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches encoded. A malformed encoded
	// hash verifies as false.
	Verify(plaintext, encoded string) bool
}

// Argon2Params are the argon2id cost parameters.
type Argon2Params struct {
	Memory      uint32 // KiB
	Iterations  uint32
	Parallelism uint8
	KeyLength   uint32
	SaltLength  uint32
}

// DefaultArgon2Params follow the OWASP argon2id baseline (19 MiB, t=2, p=1).
var DefaultArgon2Params = Argon2Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	KeyLength:   32,
	SaltLength:  16,
}

// Argon2Hasher hashes with argon2id in PHC string format. The server-side
// pepper is appended to the password before hashing and is never stored in
// the hash.
type Argon2Hasher struct {
	Params Argon2Params
	Pepper string
}

var _ PasswordHasher = (*Argon2Hasher)(nil)

func NewArgon2Hasher(pepper string) *Argon2Hasher {
	return &Argon2Hasher{Params: DefaultArgon2Params, Pepper: pepper}
}

// Hash generates a PHC-format argon2id hash string including salt and parameters.
func (h *Argon2Hasher) Hash(password string) (string, error) {
	p := h.Params
	salt := make([]byte, p.SaltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}
	hash := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		p.Iterations,
		p.Memory,
		p.Parallelism,
		p.KeyLength,
	)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		p.Memory,
		p.Iterations,
		p.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(hash),
	), nil
}

func (h *Argon2Hasher) Verify(password, encoded string) bool {
	return h.Compare(password, encoded) == nil
}

// Compare is Verify with a reason: ErrMalformedHash or ErrPasswordMismatch.
func (h *Argon2Hasher) Compare(password, encoded string) error {
	// $argon2id$v=19$m=X,t=Y,p=Z$salt$hash
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" {
		return fmt.Errorf("%w: expected 6 parts", ErrMalformedHash)
	}
	if parts[1] != "argon2id" {
		return fmt.Errorf("%w: not argon2id", ErrMalformedHash)
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return fmt.Errorf("%w: wrong version", ErrMalformedHash)
	}

	var mem, iters uint32
	var par uint8
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: failed to parse parameters: %v", ErrMalformedHash, err)
	}
	if par == 0 || iters == 0 || iters > maxIterations || mem < 8*uint32(par) || mem > maxMemory {
		return fmt.Errorf("%w: parameters out of range", ErrMalformedHash)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil || len(salt) == 0 {
		return fmt.Errorf("%w: failed to decode salt", ErrMalformedHash)
	}
	expected, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(expected) == 0 || len(expected) > maxKeyLength {
		return fmt.Errorf("%w: failed to decode hash", ErrMalformedHash)
	}

	computed := argon2.IDKey(
		[]byte(password+h.Pepper),
		salt,
		iters,
		mem,
		par,
		uint32(len(expected)), // #nosec G115 -- bounded by maxKeyLength
	)

	if subtle.ConstantTimeCompare(computed, expected) == 1 {
		return nil
	}
	return ErrPasswordMismatch
}
