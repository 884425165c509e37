package service_test

import (
	"context"
	"testing"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/stretchr/testify/require"
)

func TestCredentialStore(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creds := env.auth.Credentials

	ident, err := creds.CreateIdentity(ctx, " Rita@Example.com", "password123", domain.RoleUser)
	require.NoError(t, err)
	require.Equal(t, "rita@example.com", ident.Email)
	require.True(t, env.hasher.Verify("password123", ident.PasswordHash))

	_, err = creds.CreateIdentity(ctx, "RITA@example.com", "password456", domain.RoleUser)
	require.ErrorIs(t, err, service.ErrDuplicateIdentity)

	_, err = creds.CreateIdentity(ctx, "sam@example.com", "password123", domain.Role("root"))
	require.ErrorIs(t, err, service.ErrInvalidInput)

	byEmail, err := creds.FindByEmail(ctx, "rita@EXAMPLE.com")
	require.NoError(t, err)
	require.Equal(t, ident.ID, byEmail.ID)

	byID, err := creds.FindByID(ctx, ident.ID)
	require.NoError(t, err)
	require.Equal(t, ident.Email, byID.Email)

	_, err = creds.FindByID(ctx, "missing")
	require.ErrorIs(t, err, service.ErrIdentityNotFound)
}

func TestEnsureIdentity(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creds := env.auth.Credentials

	first, created, err := creds.EnsureIdentity(ctx, "tom@example.com", "password123", domain.RoleAdmin)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := creds.EnsureIdentity(ctx, "tom@example.com", "password123", domain.RoleAdmin)
	require.NoError(t, err)
	require.False(t, created)
	require.Equal(t, first.ID, second.ID)
}

func TestValidateEmail(t *testing.T) {
	valid := []string{"a@b.co", "first.last@sub.example.org", "x+tag@example.com"}
	for _, email := range valid {
		require.NoError(t, service.ValidateEmail(email), email)
	}

	invalid := []string{"", "plain", "a@b", "a@b.", "@b.co", "a@@b.co", "a@.co"}
	for _, email := range invalid {
		require.ErrorIs(t, service.ValidateEmail(email), service.ErrInvalidInput, email)
	}
}

func TestValidatePasswordCountsCharacters(t *testing.T) {
	require.ErrorIs(t, service.ValidatePassword("ééééé"), service.ErrInvalidInput)
	require.ErrorIs(t, service.ValidatePassword("パスワード"), service.ErrInvalidInput)

	// Eight characters pass even though they are sixteen bytes.
	require.NoError(t, service.ValidatePassword("éééééééé"))
	require.NoError(t, service.ValidatePassword("password"))
	require.ErrorIs(t, service.ValidatePassword("passwor"), service.ErrInvalidInput)
}
