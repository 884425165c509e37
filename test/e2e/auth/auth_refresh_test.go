package auth_test

import (
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/nomadpay/authcore/internal/auth/app"
	"github.com/stretchr/testify/require"
)

// TestRegisterLoginRefresh tests the complete flow:
// 1. Register a user
// 2. Login with the same credentials
// 3. Refresh the token
// 4. Verify rotation and that the old refresh token is spent
func TestRegisterLoginRefresh(t *testing.T) {
	client := setupAuthService(t, nil)

	registered := registerUser(t, client, "Alice@Example.com")
	require.Equal(t, "alice@example.com", registered.User.Email)

	login, err := client.Login(t.Context(), "alice@example.com", userPassword)
	require.NoError(t, err)
	require.Equal(t, registered.User.ID, login.User.ID)

	pair, err := client.Refresh(t.Context(), login.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, login.RefreshToken, pair.RefreshToken, "Refresh token should be rotated")

	_, err = client.Refresh(t.Context(), login.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized, "Spent refresh token should be rejected")

	me, err := client.Me(t.Context(), pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", me.User.Email)
}

// TestLogoutRevokesRefreshToken verifies logout is final.
func TestLogoutRevokesRefreshToken(t *testing.T) {
	client := setupAuthService(t, nil)

	registered := registerUser(t, client, "bob@example.com")

	require.NoError(t, client.Logout(t.Context(), registered.RefreshToken))
	require.NoError(t, client.Logout(t.Context(), registered.RefreshToken), "Logout is idempotent")

	_, err := client.Refresh(t.Context(), registered.RefreshToken)
	assertStatus(t, err, http.StatusUnauthorized, "Revoked refresh token should be rejected")
}

// TestConcurrentRefreshSingleWinner races one refresh token against itself.
func TestConcurrentRefreshSingleWinner(t *testing.T) {
	client := setupAuthService(t, nil)

	registered := registerUser(t, client, "carol@example.com")

	const racers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range racers {
		wg.Go(func() {
			if _, err := client.Refresh(t.Context(), registered.RefreshToken); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		})
	}
	wg.Wait()

	require.Equal(t, 1, wins, "Exactly one refresh should succeed")
}

// TestSessionRefreshesExpiredAccessToken lets a short access token lapse and
// relies on the SDK session to rotate.
func TestSessionRefreshesExpiredAccessToken(t *testing.T) {
	client := setupAuthService(t, func(cfg *app.Config) {
		cfg.AccessTTL = time.Second
	})

	registerUser(t, client, "dave@example.com")

	session, err := client.AuthenticateWithPassword(t.Context(), "dave@example.com", userPassword)
	require.NoError(t, err)
	oldRefresh := session.RefreshToken()

	time.Sleep(2100 * time.Millisecond)

	me, err := session.Me(t.Context())
	require.NoError(t, err)
	require.Equal(t, "dave@example.com", me.User.Email)
	require.NotEqual(t, oldRefresh, session.RefreshToken(), "Session should have rotated its tokens")
}
