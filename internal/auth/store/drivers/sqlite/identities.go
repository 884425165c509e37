package sqlite

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
		`INSERT INTO identities (`+identityColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		i.ID,
		i.Email,
		i.PasswordHash,
		string(i.Role),
		string(i.Status),
		toMillis(i.CreatedAt),
		toMillis(i.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *identitiesRepo) GetIdentityByEmail(ctx context.Context, email string) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE email = ?`, email)
	return scanIdentity(row)
}

func (r *identitiesRepo) GetIdentityByID(ctx context.Context, id string) (domain.Identity, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT `+identityColumns+` FROM identities WHERE id = ?`, id)
	return scanIdentity(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIdentity(row rowScanner) (domain.Identity, error) {
	var (
		i                    domain.Identity
		role, status         string
		createdAt, updatedAt int64
	)
	if err := row.Scan(&i.ID, &i.Email, &i.PasswordHash, &role, &status, &createdAt, &updatedAt); err != nil {
		return domain.Identity{}, mapNotFound(err)
	}
	i.Role = domain.Role(role)
	i.Status = domain.Status(status)
	i.CreatedAt = fromMillis(createdAt)
	i.UpdatedAt = fromMillis(updatedAt)
	return i, nil
}
