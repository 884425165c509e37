package service

import (
	"context"
	"errors"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/idx"
)

// RefreshLedger tracks issued refresh tokens by fingerprint. Records are never
// deleted and revocation is one-way.
type RefreshLedger struct {
	Store store.Store
	Now   func() time.Time
}

// With returns a copy bound to s, typically a transaction.
func (l *RefreshLedger) With(s store.Store) *RefreshLedger {
	cp := *l
	cp.Store = s
	return &cp
}

func (l *RefreshLedger) Record(ctx context.Context, identityID, token string, expiresAt time.Time) error {
	now := l.Now().UTC()
	err := l.Store.RefreshTokens().CreateRefreshToken(ctx, domain.RefreshToken{
		ID:         idx.NewAt(now).String(),
		IdentityID: identityID,
		TokenHash:  cryptox.FingerprintToken(token),
		ExpiresAt:  expiresAt.UTC(),
		CreatedAt:  now,
	})
	if err != nil {
		return storageErr("record refresh token", err)
	}
	return nil
}

// IsUsable reports whether token was recorded, is not revoked and has not expired.
func (l *RefreshLedger) IsUsable(ctx context.Context, token string) (bool, error) {
	rec, err := l.Store.RefreshTokens().GetRefreshTokenByHash(ctx, cryptox.FingerprintToken(token))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return false, nil
	case err != nil:
		return false, storageErr("load refresh token", err)
	}
	return rec.Usable(l.Now()), nil
}

// Revoke marks token revoked. Unknown or already revoked tokens are a no-op.
func (l *RefreshLedger) Revoke(ctx context.Context, token string) error {
	if err := l.Store.RefreshTokens().RevokeRefreshToken(ctx, cryptox.FingerprintToken(token)); err != nil {
		return storageErr("revoke refresh token", err)
	}
	return nil
}

// Consume revokes token only if it is usable right now and reports whether
// this call did it. Of two concurrent consumers at most one gets true.
func (l *RefreshLedger) Consume(ctx context.Context, token string) (bool, error) {
	ok, err := l.Store.RefreshTokens().ConsumeRefreshToken(ctx, cryptox.FingerprintToken(token), l.Now())
	if err != nil {
		return false, storageErr("consume refresh token", err)
	}
	return ok, nil
}

func (l *RefreshLedger) CountUsable(ctx context.Context) (int, error) {
	n, err := l.Store.RefreshTokens().CountUsableRefreshTokens(ctx, l.Now())
	if err != nil {
		return 0, storageErr("count usable refresh tokens", err)
	}
	return n, nil
}
