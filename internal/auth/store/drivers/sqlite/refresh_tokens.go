package sqlite

import (
	"context"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
)

type refreshTokensRepo struct {
	q querier
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, identity_id, token_hash, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, 0, ?)`,
		t.ID,
		t.IdentityID,
		t.TokenHash,
		toMillis(t.ExpiresAt),
		toMillis(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(
	ctx context.Context,
	hash string,
) (domain.RefreshToken, error) {
	var (
		t                    domain.RefreshToken
		expiresAt, createdAt int64
		revoked              int64
	)
	err := r.q.QueryRowContext(ctx,
		`SELECT id, identity_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens WHERE token_hash = ?`, hash,
	).Scan(&t.ID, &t.IdentityID, &t.TokenHash, &expiresAt, &revoked, &createdAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = fromMillis(expiresAt)
	t.CreatedAt = fromMillis(createdAt)
	t.Revoked = revoked != 0
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		 WHERE token_hash = ? AND revoked = 0`,
		toMillis(time.Now()), hash,
	)
	return err
}

func (r *refreshTokensRepo) ConsumeRefreshToken(
	ctx context.Context,
	hash string,
	now time.Time,
) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1, revoked_at = ?
		 WHERE token_hash = ? AND revoked = 0 AND expires_at > ?`,
		toMillis(now), hash, toMillis(now),
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) CountUsableRefreshTokens(ctx context.Context, now time.Time) (int, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM refresh_tokens WHERE revoked = 0 AND expires_at > ?`,
		toMillis(now),
	).Scan(&n)
	return n, err
}
