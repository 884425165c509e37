package postgres

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
		 VALUES ($1, $2, $3, $4, FALSE, $5)`,
		t.ID, t.IdentityID, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) GetRefreshTokenByHash(ctx context.Context, hash string) (domain.RefreshToken, error) {
	var t domain.RefreshToken
	err := r.q.QueryRowContext(ctx,
		`SELECT id, identity_id, token_hash, expires_at, revoked, created_at
		 FROM refresh_tokens WHERE token_hash = $1`, hash,
	).Scan(&t.ID, &t.IdentityID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	if err != nil {
		return domain.RefreshToken{}, mapNotFound(err)
	}
	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	return t, nil
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, hash string) error {
	_, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = now()
		 WHERE token_hash = $1 AND revoked = FALSE`, hash,
	)
	return err
}

func (r *refreshTokensRepo) ConsumeRefreshToken(ctx context.Context, hash string, now time.Time) (bool, error) {
	res, err := r.q.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2
		 WHERE token_hash = $1 AND revoked = FALSE AND expires_at > $2`,
		hash, now.UTC(),
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
		`SELECT COUNT(*) FROM refresh_tokens WHERE revoked = FALSE AND expires_at > $1`,
		now.UTC(),
	).Scan(&n)
	return n, err
}
