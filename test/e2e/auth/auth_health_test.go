package auth_test

import (
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestLivezEndpoint verifies the liveness check endpoint.
func TestLivezEndpoint(t *testing.T) {
	client := setupAuthService(t, nil)

	health, err := client.GetLiveness(t.Context())
	assertHealthy(t, health, err)
}

// TestReadyzEndpoint verifies readiness against the postgres store.
func TestReadyzEndpoint(t *testing.T) {
	client := setupAuthService(t, nil)

	health, err := client.GetReadiness(t.Context())
	assertHealthy(t, health, err)
	require.NotNil(t, health.Checks)
	require.Equal(t, "ok", health.Checks.Database)
}

// TestMetricsEndpoint verifies prometheus metrics are exposed with route
// patterns as labels.
func TestMetricsEndpoint(t *testing.T) {
	client := setupAuthService(t, nil)

	_, err := client.GetLiveness(t.Context())
	require.NoError(t, err)

	resp, err := http.Get(client.BaseURL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), `path="GET /livez"`)
	// The admin bootstrap on startup is audited.
	require.Contains(t, string(body), `event_type="admin_identity_bootstrapped"`)
}
