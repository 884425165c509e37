package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/service"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/metricsx"
	"github.com/nomadpay/authcore/pkg/slogx"

	_ "github.com/nomadpay/authcore/api/auth" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	metrics      *metricsx.Metrics

	store       store.Store
	AuthService *service.AuthService
	Gate        *service.Gate

	// Limiters for the credential endpoints. NewRouter installs in-process
	// sliding windows; replace them before ApplyRoutes to share state.
	RegisterLimiter httpx.Limiter
	LoginLimiter    httpx.Limiter

	// AdminLimiter is keyed by identity ID, so it stays in-process.
	AdminLimiter httpx.Limiter
}

func NewRouter(
	buildVersion string,
	st store.Store,
	auth *service.AuthService,
	metrics *metricsx.Metrics,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		metrics:      metrics,
		store:        st,
		AuthService:  auth,
		Gate:         &service.Gate{Codec: auth.Codec, Credentials: auth.Credentials},

		RegisterLimiter: httpx.NewSlidingWindow(httpx.RegisterLimit),
		LoginLimiter:    httpx.NewSlidingWindow(httpx.LoginLimit),
		AdminLimiter:    httpx.NewSlidingWindow(httpx.AdminLimit),
	}

	// Instrument stays innermost so it sees the matched route pattern.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.Recover,
		r.metrics.Instrument,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerAdmin()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Authcore API
//	@version		0.1.0
//	@description	Credential authentication with short-lived HS256 access tokens and rotating refresh tokens.
//	@description
//	@description				Every response body carries "success" and "message".
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{Auth: r.AuthService}

	// Credential endpoints are limited per client IP.
	r.Mux.Handle("POST /auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP("register", r.RegisterLimiter),
		),
	)
	r.Mux.Handle("POST /auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP("login", r.LoginLimiter),
		),
	)

	r.Mux.HandleFunc("POST /auth/refresh", h.HandleRefresh)
	r.Mux.HandleFunc("POST /auth/logout", h.HandleLogout)

	r.Mux.Handle("GET /auth/me",
		httpx.Chain(http.HandlerFunc(HandleMe),
			RequireIdentity(r.Gate),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &SecurityEventsHandler{Events: r.AuthService.Events}

	r.Mux.Handle("GET /admin/security-events",
		httpx.Chain(h,
			RequireIdentity(r.Gate),
			httpx.RequireRole(string(domain.RoleAdmin)),
			httpx.RateLimitByUser("admin", r.AdminLimiter),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", r.metrics.Handler())
}
