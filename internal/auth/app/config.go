package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/jwtx"
)

type Config struct {
	JWTSecret     string        // Required outside dev: HS256 signing secret (>= 32 bytes)
	JWTSecretFile string        // Optional: file holding the secret, wins over JWTSecret
	Issuer        string        // Optional: iss claim (default: authcore)
	AccessTTL     time.Duration // Optional: access token lifetime (default: 1h)
	RefreshTTL    time.Duration // Optional: refresh token lifetime (default: 7d)

	DatabaseDriver string // Optional: sqlite or postgres (default: sqlite)
	DatabaseFile   string // Optional: SQLite database path (default: ./auth.db)
	DatabaseURL    string // Required for postgres: connection string
	PepperFile     string // Optional: password pepper file (default: ./pepper)

	AdminEmail    string // Optional: admin identity ensured on startup
	AdminPassword string // Required when AdminEmail is set

	RateLimitBackend string // Optional: memory, bucket or redis (default: memory)
	RedisURL         string // Required for the redis backend
	RegisterLimit    httpx.RateLimitConfig
	LoginLimit       httpx.RateLimitConfig

	SentryDSN            string        // Optional: enables Sentry reporting
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 5m)
}

// LoadConfig reads the environment, after loading .env from the working
// directory when one exists. Variables already set take precedence.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		JWTSecret:     os.Getenv("AUTH_JWT_SECRET"),
		JWTSecretFile: os.Getenv("AUTH_JWT_SECRET_FILE"),
		Issuer:        getEnvOrDefault("AUTH_ISSUER", "authcore"),
		AccessTTL:     getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:    getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),

		DatabaseDriver: strings.ToLower(getEnvOrDefault("AUTH_DATABASE_DRIVER", "sqlite")),
		DatabaseFile:   getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		DatabaseURL:    os.Getenv("AUTH_DATABASE_URL"),
		PepperFile:     getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),

		AdminEmail:    os.Getenv("AUTH_ADMIN_EMAIL"),
		AdminPassword: os.Getenv("AUTH_ADMIN_PASSWORD"),

		RateLimitBackend: strings.ToLower(getEnvOrDefault("RATELIMIT_BACKEND", "memory")),
		RedisURL:         os.Getenv("REDIS_URL"),
		RegisterLimit:    httpx.ParseRateLimitFromEnv("REGISTER", httpx.RegisterLimit),
		LoginLimit:       httpx.ParseRateLimitFromEnv("LOGIN", httpx.LoginLimit),

		SentryDSN:            os.Getenv("SENTRY_DSN"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 5*time.Minute),
	}
}

// Validate reports settings that cannot work together. Secrets are checked
// later by InitTokenCodec.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("AUTH_DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown AUTH_DATABASE_DRIVER %q", c.DatabaseDriver))
	}

	switch c.RateLimitBackend {
	case "memory", "bucket":
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis rate limit backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown RATELIMIT_BACKEND %q", c.RateLimitBackend))
	}

	if c.AdminEmail != "" && c.AdminPassword == "" {
		errs = append(errs, errors.New("AUTH_ADMIN_PASSWORD is required when AUTH_ADMIN_EMAIL is set"))
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Bare integers are minutes
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
