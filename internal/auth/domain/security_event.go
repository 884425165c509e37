package domain

import "time"

type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Event types written to the security log.
const (
	EventUserRegistered       = "user_registered"
	EventRegistrationExisting = "registration_attempt_existing_email"
	EventUserLogin            = "user_login"
	EventFailedLogin          = "failed_login_attempt"
	EventInactiveLogin        = "inactive_user_login_attempt"
	EventTokenRefreshed       = "token_refreshed"
	EventRefreshRejected      = "refresh_token_rejected"
	EventRefreshTokenRevoked  = "refresh_token_revoked"
	EventAdminIdentityEnsured = "admin_identity_bootstrapped"
)

// SecurityEvent is an append-only audit record. IdentityID is nil when the
// event cannot be attributed to a known identity (e.g. unknown email).
type SecurityEvent struct {
	ID         string
	IdentityID *string
	EventType  string
	Severity   Severity
	Details    string
	SourceIP   string
	UserAgent  string
	CreatedAt  time.Time
}
