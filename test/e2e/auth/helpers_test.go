package auth_test

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"io"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/nomadpay/authcore/internal/auth/app"
	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/idx"
	"github.com/nomadpay/authcore/pkg/slogx"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common constants and helper functions for auth service end-to-end tests.
 * The service runs in-process against real postgres and redis containers
 * which are started once for the whole package.
 */

const (
	testSecret    = "e2e-secret-0123456789abcdef0123456789"
	adminEmail    = "admin@example.com"
	adminPassword = "Admin123!pass"
	userPassword  = "correct horse battery"
)

var (
	postgresDSN string // admin connection, each test gets its own database
	redisURL    string
	skipReason  string
)

// TestMain starts the shared containers before all tests and tears them down
// after. Without Docker, or with -short, every test is skipped.
func TestMain(m *testing.M) {
	flag.Parse()

	if testing.Short() {
		skipReason = "skipping e2e tests in short mode"
		os.Exit(m.Run())
	}

	provider, err := testcontainers.ProviderDocker.GetProvider()
	if err != nil {
		skipReason = "Docker not available, skipping e2e tests"
		os.Exit(m.Run())
	}
	_ = provider.Close()

	ctx := context.Background()
	fmt.Fprintf(os.Stdout, "Starting postgres and redis containers...")

	pg, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("authcore_e2e"),
		tcpostgres.WithUsername("authcore"),
		tcpostgres.WithPassword("authcore_e2e_password"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to start postgres: %v\n", err)
		os.Exit(1)
	}

	rd, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor: wait.ForLog("Ready to accept connections").
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		_ = pg.Terminate(ctx)
		fmt.Fprintf(os.Stderr, "\nFailed to start redis: %v\n", err)
		os.Exit(1)
	}

	postgresDSN, err = pg.ConnectionString(ctx, "sslmode=disable")
	if err == nil {
		var endpoint string
		endpoint, err = rd.Endpoint(ctx, "")
		redisURL = "redis://" + endpoint
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to resolve container endpoints: %v\n", err)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := 1
	if err == nil {
		exitCode = m.Run()
	}

	fmt.Fprintf(os.Stdout, "Terminating containers...")
	_ = rd.Terminate(ctx)
	_ = pg.Terminate(ctx)
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

// setupAuthService starts the service on a fresh database with relaxed rate
// limits. mutate may adjust the configuration before start.
func setupAuthService(t *testing.T, mutate func(*app.Config)) *authsdk.SDKClient {
	t.Helper()
	if skipReason != "" {
		t.Skip(skipReason)
	}

	cfg := app.Config{
		JWTSecret:        testSecret,
		Issuer:           "authcore-e2e",
		AccessTTL:        time.Hour,
		RefreshTTL:       24 * time.Hour,
		DatabaseDriver:   "postgres",
		DatabaseURL:      freshDatabase(t),
		PepperFile:       filepath.Join(t.TempDir(), "pepper"),
		AdminEmail:       adminEmail,
		AdminPassword:    adminPassword,
		RateLimitBackend: "redis",
		RedisURL:         redisURL,
		// Tests often make many rapid requests which would otherwise hit the production limits
		RegisterLimit:        httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
		LoginLimit:           httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
		Env:                  "test",
		ShutdownGracePeriod:  5 * time.Second,
		HousekeepingInterval: time.Minute,
	}
	if mutate != nil {
		mutate(&cfg)
	}

	flushRedis(t)

	logger := slogx.NewWithWriter(slogx.Config{Service: "authcore", Env: "test", Level: "warn"}, io.Discard)
	application, err := app.NewWithLogger(cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Shutdown() })

	srv := httptest.NewServer(application.Handler())
	t.Cleanup(srv.Close)

	return authsdk.NewSDKClient(srv.URL)
}

// freshDatabase creates an empty database and returns its connection string.
func freshDatabase(t *testing.T) string {
	t.Helper()

	db, err := sql.Open("pgx", postgresDSN)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	name := "e2e_" + strings.ToLower(idx.New().String())
	_, err = db.ExecContext(t.Context(), "CREATE DATABASE "+name)
	require.NoError(t, err)

	u, err := url.Parse(postgresDSN)
	require.NoError(t, err)
	u.Path = "/" + name
	return u.String()
}

// flushRedis clears limiter state left by previous tests.
func flushRedis(t *testing.T) {
	t.Helper()

	opts, err := redis.ParseURL(redisURL)
	require.NoError(t, err)
	client := redis.NewClient(opts)
	defer func() { _ = client.Close() }()

	require.NoError(t, client.FlushDB(t.Context()).Err())
}

// registerUser creates a user with userPassword and returns the response.
func registerUser(t *testing.T, client *authsdk.SDKClient, email string) *authsdk.AuthResponse {
	t.Helper()

	resp, err := client.Register(t.Context(), email, userPassword)
	require.NoError(t, err, "Register should succeed")
	require.NotEmpty(t, resp.AccessToken, "Access token should not be empty")
	require.NotEmpty(t, resp.RefreshToken, "Refresh token should not be empty")
	return resp
}

// assertStatus checks that err is an API error with the given status code.
func assertStatus(t *testing.T, err error, status int, context string) {
	t.Helper()
	require.Error(t, err, context)
	require.Contains(t, err.Error(), fmt.Sprintf(" %d ", status),
		"%s - expected HTTP %d, got: %s", context, status, err)
}

// assertHealthy verifies a health check response is OK.
func assertHealthy(t *testing.T, health *authsdk.HealthResponse, err error) {
	t.Helper()
	require.NoError(t, err)
	require.NotNil(t, health)
	require.Equal(t, "ok", health.Status)
}
