package domain

import "time"

// TokenPair is what register, login and refresh hand back to the caller.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RefreshToken models the stored refresh token record. The raw token is never
// persisted, only its fingerprint.
type RefreshToken struct {
	ID         string
	IdentityID string
	TokenHash  string // base64url SHA-256 of the token string
	ExpiresAt  time.Time
	Revoked    bool
	CreatedAt  time.Time
}

// Usable reports whether the record can still be exchanged at now.
func (t RefreshToken) Usable(now time.Time) bool {
	return !t.Revoked && now.Before(t.ExpiresAt)
}
