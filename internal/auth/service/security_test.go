package service_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestSecurityLogRecent(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	log := env.auth.Events

	for i := range 5 {
		log.Record(ctx, testMeta.Event(nil, domain.EventFailedLogin, domain.SeverityMedium, "attempt"))
		if i%2 == 0 {
			env.clock.Advance(time.Millisecond)
		}
	}

	events, err := log.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	for i := 1; i < len(events); i++ {
		require.False(t, events[i].CreatedAt.After(events[i-1].CreatedAt))
	}
	require.Equal(t, "203.0.113.7", events[0].SourceIP)
	require.Equal(t, "go-test", events[0].UserAgent)
	require.Nil(t, events[0].IdentityID)

	all, err := log.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)

	capped, err := log.Recent(ctx, 10_000)
	require.NoError(t, err)
	require.Len(t, capped, 5)

	expected := `
# HELP authcore_security_events_total Security events recorded, by type and severity.
# TYPE authcore_security_events_total counter
authcore_security_events_total{event_type="failed_login_attempt",severity="medium"} 5
`
	require.NoError(t, testutil.GatherAndCompare(env.metrics.Registry(), strings.NewReader(expected),
		"authcore_security_events_total"))
}

func TestSecurityLogRecordIsBestEffort(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.store.Close())

	require.NotPanics(t, func() {
		env.auth.Events.Record(context.Background(),
			testMeta.Event(nil, domain.EventUserLogin, domain.SeverityInfo, "x"))
	})

	_, err := env.auth.Events.Recent(context.Background(), 10)
	require.ErrorIs(t, err, service.ErrStorageUnavailable)
}

func TestSecurityLogSurvivesCancelledContext(t *testing.T) {
	env := newTestEnv(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env.auth.Events.Record(ctx, testMeta.Event(nil, domain.EventUserLogin, domain.SeverityInfo, "x"))

	events, err := env.auth.Events.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
}
