package service

import (
	"context"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/idx"
	"github.com/nomadpay/authcore/pkg/metricsx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

const (
	DefaultRecentEvents = 100
	MaxRecentEvents     = 500
)

// SecurityLog is the audit trail. Writing to it never fails the caller.
type SecurityLog struct {
	Store   store.Store
	Metrics *metricsx.Metrics
	Now     func() time.Time
}

// Record stamps e with an ID and time and appends it. Failures are logged
// and dropped.
func (l *SecurityLog) Record(ctx context.Context, e domain.SecurityEvent) {
	now := l.Now().UTC()
	if e.ID == "" {
		e.ID = idx.NewAt(now).String()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}

	l.Metrics.SecurityEvent(e.EventType, string(e.Severity))

	// The audit row is written even if the client already went away.
	ctx = context.WithoutCancel(ctx)
	if err := l.Store.SecurityEvents().AppendSecurityEvent(ctx, e); err != nil {
		slogx.FromContext(ctx).Error("failed to record security event",
			"event_type", e.EventType,
			"severity", e.Severity,
			"error", err,
		)
	}
}

// Recent lists the newest events first. limit <= 0 means
// DefaultRecentEvents; larger values are capped at MaxRecentEvents.
func (l *SecurityLog) Recent(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	switch {
	case limit <= 0:
		limit = DefaultRecentEvents
	case limit > MaxRecentEvents:
		limit = MaxRecentEvents
	}

	events, err := l.Store.SecurityEvents().ListRecentSecurityEvents(ctx, limit)
	if err != nil {
		return nil, storageErr("list security events", err)
	}
	return events, nil
}
