package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/pkg/httpx"
	"github.com/nomadpay/authcore/pkg/idx"
	"github.com/nomadpay/authcore/pkg/jwtx"
)

// Gate resolves the identity behind an access token.
type Gate struct {
	Codec       *jwtx.Codec
	Credentials *CredentialStore
}

// Authenticate reads "Authorization: Bearer <access token>" from h. Every
// rejection matches ErrUnauthenticated and nothing else; an expired token is
// indistinguishable from a forged one.
func (g *Gate) Authenticate(ctx context.Context, h http.Header) (domain.Identity, error) {
	raw, ok := httpx.BearerToken(h)
	if !ok {
		return domain.Identity{}, fmt.Errorf("%w: missing bearer token", ErrUnauthenticated)
	}

	claims, err := g.Codec.Verify(raw, jwtx.TokenTypeAccess)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", ErrUnauthenticated, err)
	}

	subject, err := idx.Parse(claims.Subject)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	ident, err := g.Credentials.FindByID(ctx, subject.String())
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		return domain.Identity{}, fmt.Errorf("%w: unknown subject", ErrUnauthenticated)
	case err != nil:
		return domain.Identity{}, err
	}

	if !ident.Active() {
		return domain.Identity{}, fmt.Errorf("%w: identity not active", ErrUnauthenticated)
	}
	return ident, nil
}
