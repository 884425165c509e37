package store

import (
	"context"
	"errors"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")

	// ErrInTx is returned by a Tx for operations that need the root store,
	// such as opening another transaction or running migrations.
	ErrInTx = errors.New("store: not allowed inside a transaction")
)

// Store is the root data access interface. Concrete drivers (sqlite, postgres)
// implement this. Sub-repositories are exposed as methods so a Tx can hand out
// the same repos bound to the transaction, and so nested transactions are
// impossible to start by accident.
type Store interface {
	Identities() Identities
	RefreshTokens() RefreshTokens
	SecurityEvents() SecurityEvents

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise it is committed.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store. It embeds the same repos but adds Commit/Rollback.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Identities interface {
	// CreateIdentity inserts a new identity. Returns ErrAlreadyExists when the
	// email is already registered; the unique constraint is the only guard.
	CreateIdentity(ctx context.Context, i domain.Identity) error

	// GetIdentityByEmail expects an already normalized email.
	GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error)

	GetIdentityByID(ctx context.Context, id string) (domain.Identity, error)
}

type RefreshTokens interface {
	// CreateRefreshToken stores a new refresh token record.
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// GetRefreshTokenByHash returns the record by its fingerprint.
	GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked on. Unknown hashes are not an error.
	RevokeRefreshToken(ctx context.Context, hash string) error

	// ConsumeRefreshToken revokes the record only if it is still usable at now
	// and reports whether this call performed the revocation.
	ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error)

	// CountUsableRefreshTokens counts records neither revoked nor expired at now.
	CountUsableRefreshTokens(ctx context.Context, now time.Time) (int, error)
}

type SecurityEvents interface {
	AppendSecurityEvent(ctx context.Context, e domain.SecurityEvent) error

	// ListRecentSecurityEvents returns up to limit events, newest first.
	ListRecentSecurityEvents(ctx context.Context, limit int) ([]domain.SecurityEvent, error)
}
