package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/postgres"
	"github.com/stretchr/testify/require"
)

func TestCreateIdentityMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st := postgres.NewStoreFromDB(db)

	mock.ExpectExec("INSERT INTO identities").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "identities_email_key"})

	now := time.Now()
	err = st.Identities().CreateIdentity(context.Background(), domain.Identity{
		ID:        "01J0000000000000000000000A",
		Email:     "dup@example.com",
		Role:      domain.RoleUser,
		Status:    domain.StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	require.ErrorIs(t, err, store.ErrAlreadyExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConsumeRefreshTokenUsesConditionalUpdate(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st := postgres.NewStoreFromDB(db)
	now := time.Now()

	mock.ExpectExec(`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = \$2`).
		WithArgs("fp", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	ok, err := st.RefreshTokens().ConsumeRefreshToken(context.Background(), "fp", now)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestWithTxCommitsAndRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	st := postgres.NewStoreFromDB(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err = st.WithTx(ctx, func(tx store.Tx) error {
		return tx.RefreshTokens().RevokeRefreshToken(ctx, "fp")
	})
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = st.WithTx(ctx, func(tx store.Tx) error { return store.ErrNotFound })
	require.ErrorIs(t, err, store.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
