package authsdk

// Envelope is embedded by every response body.
type Envelope struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Login successful"`
}

// ============================================================================
// Requests
// ============================================================================

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" example:"alice@example.com"`
	Password string `json:"password" example:"correct horse"`
}

// RefreshRequest is the body of POST /auth/refresh and POST /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ============================================================================
// Responses
// ============================================================================

// UserResponse is the public view of an identity. It never carries the
// password hash.
type UserResponse struct {
	ID        string `json:"id" example:"01JB8YQ3ZQ2N4W6V7X8Y9Z0A1B"`
	Email     string `json:"email" example:"alice@example.com"`
	Role      string `json:"role" example:"user"`
	CreatedAt string `json:"created_at" example:"2026-01-02T03:04:05Z"` // RFC3339
}

// AuthResponse is returned by register (201) and login (200).
type AuthResponse struct {
	Envelope
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	User         UserResponse `json:"user"`
}

// TokenPairResponse is returned by refresh.
type TokenPairResponse struct {
	Envelope
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// MeResponse is returned by GET /auth/me.
type MeResponse struct {
	Envelope
	User UserResponse `json:"user"`
}

// SecurityEventResponse is one audit record.
type SecurityEventResponse struct {
	ID         string  `json:"id"`
	IdentityID *string `json:"user_id"`
	EventType  string  `json:"event_type" example:"failed_login_attempt"`
	Severity   string  `json:"severity" example:"medium"`
	Details    string  `json:"details"`
	IPAddress  string  `json:"ip_address"`
	UserAgent  string  `json:"user_agent"`
	CreatedAt  string  `json:"created_at"` // RFC3339
}

// SecurityEventsResponse is returned by GET /admin/security-events.
type SecurityEventsResponse struct {
	Envelope
	Events []SecurityEventResponse `json:"events"`
}

// ============================================================================
// Health Types
// ============================================================================

// HealthResponse represents the response structure for health check endpoints.
// Used by both /livez and /readyz endpoints (readyz includes additional Checks field).
type HealthResponse struct {
	// Status indicates the overall health status ("ok" or "degraded")
	Status string `json:"status"`

	// Uptime is the service uptime duration as a string (e.g., "1h23m45s")
	Uptime string `json:"uptime,omitempty"`

	// Version is the service version string
	Version string `json:"version,omitempty"`

	// Checks contains readiness check results for critical dependencies (only for /readyz)
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks represents the status of critical service dependencies.
type HealthChecks struct {
	// Database indicates the database connection status
	Database string `json:"database"`
}
