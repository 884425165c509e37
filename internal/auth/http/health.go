package http

import (
	"net/http"
	"time"

	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/authsdk"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

// buildInfo is what both probes report about the running process.
type buildInfo struct {
	started time.Time
	version string
}

func (b buildInfo) report(status string, checks *authsdk.HealthChecks) authsdk.HealthResponse {
	return authsdk.HealthResponse{
		Status:  status,
		Uptime:  time.Since(b.started).Truncate(time.Second).String(),
		Version: b.version,
		Checks:  checks,
	}
}

// LivezHandler godoc
//
//	@Summary		Liveness probe
//	@Description	200 for as long as the process can serve HTTP. Touches no dependencies.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Router			/livez [get].
func LivezHandler(started time.Time, version string) http.HandlerFunc {
	info := buildInfo{started: started, version: version}
	return func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, info.report("ok", nil))
	}
}

// ReadyzHandler godoc
//
//	@Summary		Readiness probe
//	@Description	Pings the database. Returns 503 while storage is unreachable.
//	@Tags			Health
//	@Produce		json
//	@Success		200	{object}	authsdk.HealthResponse
//	@Failure		503	{object}	authsdk.HealthResponse	"storage unreachable"
//	@Router			/readyz [get].
func ReadyzHandler(started time.Time, version string, st store.Store) http.HandlerFunc {
	info := buildInfo{started: started, version: version}
	return func(w http.ResponseWriter, r *http.Request) {
		if err := st.Ping(r.Context()); err != nil {
			// Driver errors can carry DSNs; keep them in the log only.
			slogx.FromContext(r.Context()).Warn("readiness check failed", "error", err)
			httpx.WriteJSON(w, http.StatusServiceUnavailable,
				info.report("degraded", &authsdk.HealthChecks{Database: "unavailable"}))
			return
		}
		httpx.WriteJSON(w, http.StatusOK, info.report("ok", &authsdk.HealthChecks{Database: "ok"}))
	}
}
