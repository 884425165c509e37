package sqlite_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/sqlite"
	"github.com/nomadpay/authcore/pkg/idx"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	require.NoError(t, st.ApplyMigrations())
	return st
}

func seedIdentity(t *testing.T, st store.Store, email string) domain.Identity {
	t.Helper()

	now := time.Now().UTC()
	ident := domain.Identity{
		ID:           idx.New().String(),
		Email:        email,
		PasswordHash: "$argon2id$v=19$m=1,t=1,p=1$c2FsdA$aGFzaA",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, st.Identities().CreateIdentity(context.Background(), ident))
	return ident
}

func TestApplyMigrationsIsIdempotent(t *testing.T) {
	st := newTestStore(t)
	require.NoError(t, st.ApplyMigrations())
	require.NoError(t, st.Ping(context.Background()))
}

func TestIdentities(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created := seedIdentity(t, st, "alice@example.com")

	t.Run("lookup by email and id", func(t *testing.T) {
		byEmail, err := st.Identities().GetIdentityByEmail(ctx, "alice@example.com")
		require.NoError(t, err)
		require.Equal(t, created.ID, byEmail.ID)
		require.Equal(t, domain.RoleUser, byEmail.Role)
		require.Equal(t, domain.StatusActive, byEmail.Status)
		require.WithinDuration(t, created.CreatedAt, byEmail.CreatedAt, time.Millisecond)

		byID, err := st.Identities().GetIdentityByID(ctx, created.ID)
		require.NoError(t, err)
		require.Equal(t, "alice@example.com", byID.Email)
	})

	t.Run("duplicate email is rejected regardless of case", func(t *testing.T) {
		dup := created
		dup.ID = idx.New().String()
		dup.Email = "ALICE@example.com"

		err := st.Identities().CreateIdentity(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("missing identity", func(t *testing.T) {
		_, err := st.Identities().GetIdentityByEmail(ctx, "nobody@example.com")
		require.ErrorIs(t, err, store.ErrNotFound)

		_, err = st.Identities().GetIdentityByID(ctx, idx.New().String())
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestRefreshTokens(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ident := seedIdentity(t, st, "bob@example.com")
	now := time.Now().UTC()

	newToken := func(hash string, expiresAt time.Time) domain.RefreshToken {
		tok := domain.RefreshToken{
			ID:         idx.New().String(),
			IdentityID: ident.ID,
			TokenHash:  hash,
			ExpiresAt:  expiresAt,
			CreatedAt:  now,
		}
		require.NoError(t, st.RefreshTokens().CreateRefreshToken(ctx, tok))
		return tok
	}

	t.Run("create and fetch", func(t *testing.T) {
		newToken("hash-fetch", now.Add(time.Hour))

		got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-fetch")
		require.NoError(t, err)
		require.False(t, got.Revoked)
		require.Equal(t, ident.ID, got.IdentityID)
		require.True(t, got.Usable(now))
	})

	t.Run("consume succeeds exactly once", func(t *testing.T) {
		newToken("hash-consume", now.Add(time.Hour))

		ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, "hash-consume", now)
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = st.RefreshTokens().ConsumeRefreshToken(ctx, "hash-consume", now)
		require.NoError(t, err)
		require.False(t, ok)

		got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-consume")
		require.NoError(t, err)
		require.True(t, got.Revoked)
	})

	t.Run("expired token cannot be consumed", func(t *testing.T) {
		newToken("hash-expired", now.Add(-time.Second))

		ok, err := st.RefreshTokens().ConsumeRefreshToken(ctx, "hash-expired", now)
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("revoke is idempotent and unknown hashes are ignored", func(t *testing.T) {
		newToken("hash-revoke", now.Add(time.Hour))

		require.NoError(t, st.RefreshTokens().RevokeRefreshToken(ctx, "hash-revoke"))
		require.NoError(t, st.RefreshTokens().RevokeRefreshToken(ctx, "hash-revoke"))
		require.NoError(t, st.RefreshTokens().RevokeRefreshToken(ctx, "no-such-hash"))

		got, err := st.RefreshTokens().GetRefreshTokenByHash(ctx, "hash-revoke")
		require.NoError(t, err)
		require.True(t, got.Revoked)
	})

	t.Run("duplicate hash is rejected", func(t *testing.T) {
		dup := domain.RefreshToken{
			ID:         idx.New().String(),
			IdentityID: ident.ID,
			TokenHash:  "hash-fetch",
			ExpiresAt:  now.Add(time.Hour),
			CreatedAt:  now,
		}
		err := st.RefreshTokens().CreateRefreshToken(ctx, dup)
		require.ErrorIs(t, err, store.ErrAlreadyExists)
	})

	t.Run("count usable", func(t *testing.T) {
		n, err := st.RefreshTokens().CountUsableRefreshTokens(ctx, now)
		require.NoError(t, err)
		require.Equal(t, 1, n) // only hash-fetch is still live
	})
}

func TestWithTxRollsBack(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	err := st.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now().UTC()
		if err := tx.Identities().CreateIdentity(ctx, domain.Identity{
			ID:           idx.New().String(),
			Email:        "rollback@example.com",
			PasswordHash: "x",
			Role:         domain.RoleUser,
			Status:       domain.StatusActive,
			CreatedAt:    now,
			UpdatedAt:    now,
		}); err != nil {
			return err
		}
		return store.ErrNotFound
	})
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.Identities().GetIdentityByEmail(ctx, "rollback@example.com")
	require.ErrorIs(t, err, store.ErrNotFound)

	t.Run("nested transactions are refused", func(t *testing.T) {
		err := st.WithTx(ctx, func(tx store.Tx) error {
			return tx.WithTx(ctx, func(store.Tx) error { return nil })
		})
		require.ErrorIs(t, err, store.ErrInTx)
	})
}

func TestSecurityEvents(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	ident := seedIdentity(t, st, "carol@example.com")
	base := time.Now().UTC().Add(-time.Minute)

	for i, eventType := range []string{domain.EventUserRegistered, domain.EventUserLogin, domain.EventFailedLogin} {
		var identityID *string
		if eventType != domain.EventFailedLogin {
			identityID = &ident.ID
		}
		require.NoError(t, st.SecurityEvents().AppendSecurityEvent(ctx, domain.SecurityEvent{
			ID:         idx.New().String(),
			IdentityID: identityID,
			EventType:  eventType,
			Severity:   domain.SeverityInfo,
			Details:    "detail",
			SourceIP:   "203.0.113.7",
			UserAgent:  "test",
			CreatedAt:  base.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := st.SecurityEvents().ListRecentSecurityEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.EventFailedLogin, events[0].EventType)
	require.Nil(t, events[0].IdentityID)
	require.Equal(t, domain.EventUserLogin, events[1].EventType)
	require.NotNil(t, events[1].IdentityID)
	require.Equal(t, ident.ID, *events[1].IdentityID)
}
