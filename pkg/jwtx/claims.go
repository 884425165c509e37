package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTokenTTL  = time.Hour
	DefaultRefreshTokenTTL = 7 * 24 * time.Hour
)

// TokenType distinguishes access tokens from refresh tokens. A token of one
// type is never accepted where the other is expected.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Claims are the signed contents of every token we mint.
type Claims struct {
	jwt.RegisteredClaims

	// Type is "access" or "refresh".
	Type TokenType `json:"typ"`

	// Role of the subject at issuance time.
	Role string `json:"role,omitempty"`
}

// NewClaims builds claims for subject valid from now for ttl. Every call gets
// a fresh jti, so two tokens minted in the same second still differ.
func NewClaims(
	subject string,
	typ TokenType,
	role string,
	issuer string,
	ttl time.Duration,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Type: typ,
		Role: role,
	}
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
