package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest HS256 secret NewCodec accepts.
const MinSecretLength = 32

var (
	ErrMalformed  = errors.New("jwtx: malformed token")
	ErrInvalidSig = errors.New("jwtx: invalid signature")
	ErrExpired    = errors.New("jwtx: token expired")
	ErrWrongType  = errors.New("jwtx: wrong token type")
	ErrWeakSecret = errors.New("jwtx: signing secret too short")
)

// Codec signs and verifies HS256 tokens with a shared secret. It holds no
// mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	now    func() time.Time
	parser *jwt.Parser
}

func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("%w: need %d bytes, got %d", ErrWeakSecret, MinSecretLength, len(secret))
	}

	return &Codec{
		secret: append([]byte(nil), secret...),
		issuer: issuer,
		now:    time.Now,
		// Expiry is checked by Verify itself so the order of checks and the
		// clock stay under our control.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}, nil
}

// WithClock returns a copy of c that reads the current time from now.
func (c *Codec) WithClock(now func() time.Time) *Codec {
	cp := *c
	cp.now = now
	return &cp
}

func (c *Codec) Issuer() string { return c.issuer }

// Now is the codec clock, shared with callers that stamp records alongside tokens.
func (c *Codec) Now() time.Time { return c.now().UTC() }

// IssueFor mints a token of typ for subject valid for ttl from the codec clock.
func (c *Codec) IssueFor(subject string, typ TokenType, role string, ttl time.Duration) (string, Claims, error) {
	claims := NewClaims(subject, typ, role, c.issuer, ttl, c.Now())
	token, err := c.Issue(claims)
	return token, claims, err
}

// Issue signs claims as they are.
func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.ExpiresAt == nil {
		return "", fmt.Errorf("%w: exp is required", ErrMalformed)
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Verify checks the signature and issuer, then expiry, then that the token
// is of the expected type. Only ErrExpired means the caller may retry after a refresh.
// With ErrExpired the signed claims are still returned.
func (c *Codec) Verify(raw string, expected TokenType) (Claims, error) {
	var claims Claims
	_, err := c.parser.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid),
			errors.Is(err, jwt.ErrTokenUnverifiable),
			errors.Is(err, jwt.ErrSignatureInvalid):
			return Claims{}, fmt.Errorf("%w: %v", ErrInvalidSig, err)
		default:
			return Claims{}, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
	}

	if claims.ExpiresAt == nil || claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing exp or sub", ErrMalformed)
	}
	if claims.Issuer != c.issuer {
		return Claims{}, fmt.Errorf("%w: issuer %q", ErrMalformed, claims.Issuer)
	}
	if !c.now().Before(claims.ExpiresAt.Time) {
		return claims, ErrExpired
	}

	if claims.Type != expected {
		return Claims{}, fmt.Errorf("%w: want %s, got %q", ErrWrongType, expected, claims.Type)
	}

	return claims, nil
}
