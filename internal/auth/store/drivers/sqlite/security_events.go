package sqlite

import (
	"context"
	"database/sql"

	"github.com/nomadpay/authcore/internal/auth/domain"
)

type securityEventsRepo struct {
	q querier
}

func (r *securityEventsRepo) AppendSecurityEvent(ctx context.Context, e domain.SecurityEvent) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO security_events
		 (id, identity_id, event_type, severity, details, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID,
		mapOptionalString(e.IdentityID),
		e.EventType,
		string(e.Severity),
		e.Details,
		e.SourceIP,
		e.UserAgent,
		toMillis(e.CreatedAt),
	)
	return err
}

func (r *securityEventsRepo) ListRecentSecurityEvents(
	ctx context.Context,
	limit int,
) ([]domain.SecurityEvent, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, identity_id, event_type, severity, details, ip_address, user_agent, created_at
		 FROM security_events
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]domain.SecurityEvent, 0, limit)
	for rows.Next() {
		var (
			e          domain.SecurityEvent
			identityID sql.NullString
			severity   string
			createdAt  int64
		)
		if err := rows.Scan(
			&e.ID, &identityID, &e.EventType, &severity,
			&e.Details, &e.SourceIP, &e.UserAgent, &createdAt,
		); err != nil {
			return nil, err
		}
		e.IdentityID = mapNullString(identityID)
		e.Severity = domain.Severity(severity)
		e.CreatedAt = fromMillis(createdAt)
		events = append(events, e)
	}
	return events, rows.Err()
}
