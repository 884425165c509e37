package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/jwtx"
)

var ErrMissingSecret = errors.New("AUTH_JWT_SECRET or AUTH_JWT_SECRET_FILE is required")

// InitTokenCodec builds the HS256 codec.
//
// The secret is read from AUTH_JWT_SECRET_FILE when set, otherwise from
// AUTH_JWT_SECRET. In dev a missing secret is replaced by a random one, which
// invalidates every token on restart. Other environments refuse to start.
func InitTokenCodec(cfg Config, logger *slog.Logger) (*jwtx.Codec, error) {
	secret := cfg.JWTSecret
	if cfg.JWTSecretFile != "" {
		raw, err := os.ReadFile(cfg.JWTSecretFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read JWT secret file: %w", err)
		}
		secret = strings.TrimSpace(string(raw))
	}

	if secret == "" {
		if cfg.Env != "dev" {
			return nil, ErrMissingSecret
		}

		generated, err := cryptox.RandomString(cryptox.SecretSize)
		if err != nil {
			return nil, fmt.Errorf("failed to generate ephemeral JWT secret: %w", err)
		}
		secret = generated
		logger.Warn("no JWT secret configured, using an ephemeral one; tokens will not survive a restart")
	}

	codec, err := jwtx.NewCodec([]byte(secret), cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token codec: %w", err)
	}

	logger.Info("token codec ready",
		"issuer", cfg.Issuer,
		"access_ttl", cfg.AccessTTL,
		"refresh_ttl", cfg.RefreshTTL,
	)
	return codec, nil
}
