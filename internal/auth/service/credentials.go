package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/idx"
)

const (
	// MinPasswordLength counts characters, not bytes.
	MinPasswordLength = 8
	// MaxPasswordLength caps the bytes fed to argon2.
	MaxPasswordLength = 256
	MaxEmailLength    = 254
)

// NormalizeEmail lowercases and trims an email address. Every lookup and
// insert goes through it.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidateEmail expects a normalized address with a local part, an '@' and a
// domain containing a dot.
func ValidateEmail(email string) error {
	if email == "" {
		return &ValidationError{Field: "email", Message: "is required"}
	}
	if len(email) > MaxEmailLength {
		return &ValidationError{Field: "email", Message: "is too long"}
	}

	local, domainPart, ok := strings.Cut(email, "@")
	if !ok || local == "" || strings.Contains(domainPart, "@") {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	dot := strings.LastIndexByte(domainPart, '.')
	if dot <= 0 || dot == len(domainPart)-1 {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return &ValidationError{Field: "email", Message: "must be a valid email address"}
	}
	return nil
}

func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at least %d characters long", MinPasswordLength),
		}
	}
	if len(password) > MaxPasswordLength {
		return &ValidationError{
			Field:   "password",
			Message: fmt.Sprintf("must be at most %d bytes long", MaxPasswordLength),
		}
	}
	return nil
}

// CredentialStore owns identities and their password hashes.
type CredentialStore struct {
	Store  store.Store
	Hasher cryptox.PasswordHasher
	Now    func() time.Time
}

// With returns a copy bound to s, typically a transaction.
func (c *CredentialStore) With(s store.Store) *CredentialStore {
	cp := *c
	cp.Store = s
	return &cp
}

// CreateIdentity hashes password and inserts an active identity. The storage
// uniqueness constraint decides duplicates: ErrDuplicateIdentity.
func (c *CredentialStore) CreateIdentity(
	ctx context.Context,
	email, password string,
	role domain.Role,
) (domain.Identity, error) {
	ident, err := c.newIdentity(email, password, role)
	if err != nil {
		return domain.Identity{}, err
	}
	if err := c.insert(ctx, ident); err != nil {
		return domain.Identity{}, err
	}
	return ident, nil
}

// newIdentity builds the record without touching storage, so the slow hash
// runs outside any transaction.
func (c *CredentialStore) newIdentity(email, password string, role domain.Role) (domain.Identity, error) {
	if !role.Valid() {
		return domain.Identity{}, &ValidationError{Field: "role", Message: "unknown role"}
	}

	hash, err := c.Hasher.Hash(password)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	now := c.Now().UTC()
	return domain.Identity{
		ID:           idx.NewAt(now).String(),
		Email:        NormalizeEmail(email),
		PasswordHash: hash,
		Role:         role,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

func (c *CredentialStore) insert(ctx context.Context, ident domain.Identity) error {
	err := c.Store.Identities().CreateIdentity(ctx, ident)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrAlreadyExists):
		return ErrDuplicateIdentity
	default:
		return storageErr("create identity", err)
	}
}

func (c *CredentialStore) FindByEmail(ctx context.Context, email string) (domain.Identity, error) {
	ident, err := c.Store.Identities().GetIdentityByEmail(ctx, NormalizeEmail(email))
	return ident, mapLookup("find identity by email", err)
}

func (c *CredentialStore) FindByID(ctx context.Context, id string) (domain.Identity, error) {
	ident, err := c.Store.Identities().GetIdentityByID(ctx, id)
	return ident, mapLookup("find identity by id", err)
}

// EnsureIdentity creates the identity unless one with email already exists.
// It reports whether it created it.
func (c *CredentialStore) EnsureIdentity(
	ctx context.Context,
	email, password string,
	role domain.Role,
) (domain.Identity, bool, error) {
	ident, err := c.FindByEmail(ctx, email)
	if err == nil {
		return ident, false, nil
	}
	if !errors.Is(err, ErrIdentityNotFound) {
		return domain.Identity{}, false, err
	}

	ident, err = c.CreateIdentity(ctx, email, password, role)
	if errors.Is(err, ErrDuplicateIdentity) {
		// Another instance won the race.
		ident, err = c.FindByEmail(ctx, email)
		return ident, false, err
	}
	if err != nil {
		return domain.Identity{}, false, err
	}
	return ident, true, nil
}

func mapLookup(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return ErrIdentityNotFound
	default:
		return storageErr(op, err)
	}
}
