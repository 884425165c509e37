package domain

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

type Status string

const (
	StatusActive    Status = "active"
	StatusInactive  Status = "inactive"
	StatusSuspended Status = "suspended"
)

// Identity is an account that can authenticate. Identities are never deleted,
// only moved out of StatusActive.
type Identity struct {
	ID           string
	Email        string // normalized, unique
	PasswordHash string `json:"-"` // argon2id PHC string
	Role         Role
	Status       Status
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Active reports whether the identity may authenticate.
func (i Identity) Active() bool { return i.Status == StatusActive }
