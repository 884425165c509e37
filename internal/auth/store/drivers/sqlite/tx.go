package sqlite

import (
	"context"
	"database/sql"

	"github.com/nomadpay/authcore/internal/auth/store"
)

// txStore hands out the same repos as Store, bound to one *sql.Tx.
type txStore struct {
	tx *sql.Tx
}

func (t *txStore) Identities() store.Identities         { return &identitiesRepo{q: t.tx} }
func (t *txStore) RefreshTokens() store.RefreshTokens   { return &refreshTokensRepo{q: t.tx} }
func (t *txStore) SecurityEvents() store.SecurityEvents { return &securityEventsRepo{q: t.tx} }

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

// Ping reports whether the transaction can still run statements.
func (t *txStore) Ping(ctx context.Context) error {
	var one int
	return t.tx.QueryRowContext(ctx, "SELECT 1").Scan(&one)
}

// Close leaves the underlying database open; it belongs to the root Store.
func (t *txStore) Close() error { return nil }

// sqlite has no nested BEGIN. SAVEPOINT would work but nothing needs it yet.
func (t *txStore) Tx(context.Context) (store.Tx, error) { return nil, store.ErrInTx }

func (t *txStore) WithTx(context.Context, func(store.Tx) error) error { return store.ErrInTx }

func (t *txStore) ApplyMigrations() error { return store.ErrInTx }
