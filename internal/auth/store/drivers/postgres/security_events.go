package postgres

import (
	"context"
	"database/sql"

	"github.com/nomadpay/authcore/internal/auth/domain"
)

type securityEventsRepo struct {
	q querier
}

func (r *securityEventsRepo) AppendSecurityEvent(ctx context.Context, e domain.SecurityEvent) error {
	var identityID sql.NullString
	if e.IdentityID != nil {
		identityID = sql.NullString{String: *e.IdentityID, Valid: true}
	}

	_, err := r.q.ExecContext(ctx,
		`INSERT INTO security_events
		 (id, identity_id, event_type, severity, details, ip_address, user_agent, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.ID, identityID, e.EventType, string(e.Severity),
		e.Details, e.SourceIP, e.UserAgent, e.CreatedAt.UTC(),
	)
	return err
}

func (r *securityEventsRepo) ListRecentSecurityEvents(ctx context.Context, limit int) ([]domain.SecurityEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, identity_id, event_type, severity, details, ip_address, user_agent, created_at
		 FROM security_events
		 ORDER BY created_at DESC, id DESC
		 LIMIT $1`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.SecurityEvent
	for rows.Next() {
		var (
			e          domain.SecurityEvent
			identityID sql.NullString
			severity   string
		)
		if err := rows.Scan(
			&e.ID, &identityID, &e.EventType, &severity,
			&e.Details, &e.SourceIP, &e.UserAgent, &e.CreatedAt,
		); err != nil {
			return nil, err
		}
		if identityID.Valid {
			id := identityID.String
			e.IdentityID = &id
		}
		e.Severity = domain.Severity(severity)
		e.CreatedAt = e.CreatedAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
