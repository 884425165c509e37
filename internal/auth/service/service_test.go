package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/internal/auth/store/drivers/sqlite"
	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/idx"
	"github.com/nomadpay/authcore/pkg/jwtx"
	"github.com/nomadpay/authcore/pkg/metricsx"
	"github.com/stretchr/testify/require"
)

var testMeta = service.RequestMeta{SourceIP: "203.0.113.7", UserAgent: "go-test"}

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	store   *sqlite.Store
	clock   *clock
	codec   *jwtx.Codec
	hasher  *cryptox.Argon2Hasher
	metrics *metricsx.Metrics
	auth    *service.AuthService
	gate    *service.Gate
}

// fastHasher keeps argon2 cheap enough for unit tests.
func fastHasher() *cryptox.Argon2Hasher {
	return &cryptox.Argon2Hasher{
		Params: cryptox.Argon2Params{
			Memory:      64,
			Iterations:  1,
			Parallelism: 1,
			KeyLength:   32,
			SaltLength:  16,
		},
		Pepper: "test-pepper",
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(sqlite.DSN(filepath.Join(t.TempDir(), "auth.db")))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clk := &clock{t: time.Now().UTC().Truncate(time.Second)}
	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "authcore-test")
	require.NoError(t, err)
	codec = codec.WithClock(clk.Now)

	hasher := fastHasher()
	metrics := metricsx.New()
	auth := service.NewAuthService(st, codec, hasher, metrics)

	return &testEnv{
		store:   st,
		clock:   clk,
		codec:   codec,
		hasher:  hasher,
		metrics: metrics,
		auth:    auth,
		gate:    &service.Gate{Codec: codec, Credentials: auth.Credentials},
	}
}

func (e *testEnv) register(t *testing.T, email, password string) service.Session {
	t.Helper()
	sess, err := e.auth.Register(context.Background(), testMeta, email, password)
	require.NoError(t, err)
	return sess
}

// seedIdentity inserts an identity with an arbitrary status straight into storage.
func (e *testEnv) seedIdentity(t *testing.T, email, password string, status domain.Status) domain.Identity {
	t.Helper()

	hash, err := e.hasher.Hash(password)
	require.NoError(t, err)

	now := e.clock.Now()
	ident := domain.Identity{
		ID:           idx.NewAt(now).String(),
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Status:       status,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, e.store.Identities().CreateIdentity(context.Background(), ident))
	return ident
}

func (e *testEnv) eventTypes(t *testing.T) []string {
	t.Helper()

	events, err := e.auth.Events.Recent(context.Background(), service.MaxRecentEvents)
	require.NoError(t, err)

	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.EventType)
	}
	return types
}
