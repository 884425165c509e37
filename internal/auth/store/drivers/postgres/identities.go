package postgres

import (
	"context"

	"github.com/nomadpay/authcore/internal/auth/domain"
)

type identitiesRepo struct {
	q querier
}

const identityColumns = `id, email, password_hash, role, status, created_at, updated_at`

func (r *identitiesRepo) CreateIdentity(ctx context.Context, i domain.Identity) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO identities (`+identityColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		i.ID, i.Email, i.PasswordHash, string(i.Role), string(i.Status),
		i.CreatedAt.UTC(), i.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM identities WHERE lower(email) = lower($1)`, email)
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	return r.get(ctx, `SELECT `+identityColumns+` FROM identities WHERE id = $1`, id)
}

func (r *identitiesRepo) get(ctx context.Context, query string, arg string) (domain.Identity, error) {
	var (
		i            domain.Identity
		role, status string
	)
	err := r.q.QueryRowContext(ctx, query, arg).Scan(
		&i.ID, &i.Email, &i.PasswordHash, &role, &status, &i.CreatedAt, &i.UpdatedAt,
	)
	if err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.Role = domain.Role(role)
	i.Status = domain.Status(status)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return i, nil
}
