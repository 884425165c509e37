package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nomadpay/authcore/internal/auth/domain"
	"github.com/nomadpay/authcore/internal/auth/store"
	"github.com/nomadpay/authcore/pkg/cryptox"
	"github.com/nomadpay/authcore/pkg/jwtx"
	"github.com/nomadpay/authcore/pkg/metricsx"
	"github.com/nomadpay/authcore/pkg/slogx"
)

// RequestMeta carries the caller details that end up in the security log.
type RequestMeta struct {
	SourceIP  string
	UserAgent string
}

// Event builds a security event attributed to the caller.
func (m RequestMeta) Event(
	identityID *string,
	eventType string,
	severity domain.Severity,
	details string,
) domain.SecurityEvent {
	return domain.SecurityEvent{
		IdentityID: identityID,
		EventType:  eventType,
		Severity:   severity,
		Details:    details,
		SourceIP:   m.SourceIP,
		UserAgent:  m.UserAgent,
	}
}

// Session is the result of a successful register or login.
type Session struct {
	Identity domain.Identity
	Tokens   domain.TokenPair
}

type AuthService struct {
	Store       store.Store
	Codec       *jwtx.Codec
	Hasher      cryptox.PasswordHasher
	Credentials *CredentialStore
	Ledger      *RefreshLedger
	Events      *SecurityLog

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService wires the credential store, ledger and security log over st.
// All of them read time from the codec clock. metrics may be nil.
func NewAuthService(
	st store.Store,
	codec *jwtx.Codec,
	hasher cryptox.PasswordHasher,
	metrics *metricsx.Metrics,
) *AuthService {
	return &AuthService{
		Store:       st,
		Codec:       codec,
		Hasher:      hasher,
		Credentials: &CredentialStore{Store: st, Hasher: hasher, Now: codec.Now},
		Ledger:      &RefreshLedger{Store: st, Now: codec.Now},
		Events:      &SecurityLog{Store: st, Metrics: metrics, Now: codec.Now},
		AccessTTL:   jwtx.DefaultAccessTokenTTL,
		RefreshTTL:  jwtx.DefaultRefreshTokenTTL,
	}
}

// Register creates a user identity and signs it in.
func (s *AuthService) Register(ctx context.Context, meta RequestMeta, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return Session{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return Session{}, err
	}

	ident, err := s.Credentials.newIdentity(email, password, domain.RoleUser)
	if err != nil {
		return Session{}, err
	}

	var pair domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := s.Credentials.With(tx).insert(ctx, ident); err != nil {
			return err
		}
		p, err := s.issuePair(ctx, s.Ledger.With(tx), ident)
		pair = p
		return err
	})
	if errors.Is(err, ErrDuplicateIdentity) {
		s.Events.Record(ctx, meta.Event(nil,
			domain.EventRegistrationExisting, domain.SeverityLow,
			"Email: "+email))
		return Session{}, ErrEmailTaken
	}
	if err != nil {
		return Session{}, asStorageErr("register", err)
	}

	s.Events.Record(ctx, meta.Event(&ident.ID,
		domain.EventUserRegistered, domain.SeverityInfo,
		"New user registered: "+email))

	slogx.FromContext(ctx).Info("identity registered", "identity_id", ident.ID)
	return Session{Identity: ident, Tokens: pair}, nil
}

// Login verifies credentials. An unknown email, a wrong password and an
// inactive identity all yield ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, meta RequestMeta, email, password string) (Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, &ValidationError{Field: "credentials", Message: "email and password are required"}
	}

	ident, err := s.Credentials.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrIdentityNotFound):
		// Spend the same hashing time as a real check.
		s.Hasher.Verify(password, s.dummyPasswordHash())
		s.Events.Record(ctx, meta.Event(nil,
			domain.EventFailedLogin, domain.SeverityMedium,
			"Email: "+email))
		return Session{}, ErrInvalidCredentials
	case err != nil:
		return Session{}, err
	}

	if !s.Hasher.Verify(password, ident.PasswordHash) {
		s.Events.Record(ctx, meta.Event(&ident.ID,
			domain.EventFailedLogin, domain.SeverityMedium,
			"Email: "+email))
		return Session{}, ErrInvalidCredentials
	}

	if !ident.Active() {
		s.Events.Record(ctx, meta.Event(&ident.ID,
			domain.EventInactiveLogin, domain.SeverityMedium,
			fmt.Sprintf("Inactive user login: %s (status %s)", email, ident.Status)))
		return Session{}, ErrInvalidCredentials
	}

	pair, err := s.issuePair(ctx, s.Ledger, ident)
	if err != nil {
		return Session{}, asStorageErr("login", err)
	}

	s.Events.Record(ctx, meta.Event(&ident.ID,
		domain.EventUserLogin, domain.SeverityInfo,
		"User logged in: "+email))
	return Session{Identity: ident, Tokens: pair}, nil
}

// Refresh rotates refreshToken: it is consumed and a new pair is issued in the
// same transaction. Every rejection is ErrRefreshInvalid.
func (s *AuthService) Refresh(ctx context.Context, meta RequestMeta, refreshToken string) (domain.TokenPair, error) {
	claims, err := s.Codec.Verify(refreshToken, jwtx.TokenTypeRefresh)
	if err != nil {
		s.rejectRefresh(ctx, meta, nil, err.Error())
		return domain.TokenPair{}, ErrRefreshInvalid
	}

	var (
		pair   domain.TokenPair
		reason string
	)
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		consumed, err := s.Ledger.With(tx).Consume(ctx, refreshToken)
		if err != nil {
			return err
		}
		if !consumed {
			reason = "revoked, expired or unknown refresh token"
			return ErrRefreshInvalid
		}

		ident, err := s.Credentials.With(tx).FindByID(ctx, claims.Subject)
		if errors.Is(err, ErrIdentityNotFound) {
			reason = "unknown subject"
			return ErrRefreshInvalid
		}
		if err != nil {
			return err
		}
		if !ident.Active() {
			reason = "identity not active"
			return ErrRefreshInvalid
		}

		pair, err = s.issuePair(ctx, s.Ledger.With(tx), ident)
		return err
	})
	if errors.Is(err, ErrRefreshInvalid) {
		s.rejectRefresh(ctx, meta, &claims.Subject, reason)
		return domain.TokenPair{}, ErrRefreshInvalid
	}
	if err != nil {
		return domain.TokenPair{}, asStorageErr("refresh", err)
	}

	s.Events.Record(ctx, meta.Event(&claims.Subject,
		domain.EventTokenRefreshed, domain.SeverityInfo,
		"Refresh token rotated"))
	return pair, nil
}

func (s *AuthService) rejectRefresh(ctx context.Context, meta RequestMeta, subject *string, reason string) {
	// Only attribute the event once the subject is known to be ours.
	if subject != nil {
		if _, err := s.Credentials.FindByID(ctx, *subject); err != nil {
			subject = nil
		}
	}
	s.Events.Record(ctx, meta.Event(subject,
		domain.EventRefreshRejected, domain.SeverityLow,
		reason))
}

// Logout revokes refreshToken. Unknown, expired and already revoked tokens
// are not errors.
func (s *AuthService) Logout(ctx context.Context, meta RequestMeta, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}

	if err := s.Ledger.Revoke(ctx, refreshToken); err != nil {
		return err
	}

	var subject *string
	if claims, err := s.Codec.Verify(refreshToken, jwtx.TokenTypeRefresh); err == nil || errors.Is(err, jwtx.ErrExpired) {
		if _, err := s.Credentials.FindByID(ctx, claims.Subject); err == nil {
			subject = &claims.Subject
		}
	}
	s.Events.Record(ctx, meta.Event(subject,
		domain.EventRefreshTokenRevoked, domain.SeverityInfo,
		"Refresh token revoked on logout"))
	return nil
}

// EnsureAdmin creates the admin identity on first start.
func (s *AuthService) EnsureAdmin(ctx context.Context, email, password string) (domain.Identity, error) {
	email = NormalizeEmail(email)
	if err := ValidateEmail(email); err != nil {
		return domain.Identity{}, err
	}
	if err := ValidatePassword(password); err != nil {
		return domain.Identity{}, err
	}

	ident, created, err := s.Credentials.EnsureIdentity(ctx, email, password, domain.RoleAdmin)
	if err != nil {
		return domain.Identity{}, err
	}
	if created {
		s.Events.Record(ctx, RequestMeta{SourceIP: "local", UserAgent: "bootstrap"}.Event(&ident.ID,
			domain.EventAdminIdentityEnsured, domain.SeverityHigh,
			"Admin identity created: "+email))
	}
	return ident, nil
}

// issuePair mints an access/refresh pair for ident and records the refresh
// token in ledger.
func (s *AuthService) issuePair(ctx context.Context, ledger *RefreshLedger, ident domain.Identity) (domain.TokenPair, error) {
	access, _, err := s.Codec.IssueFor(ident.ID, jwtx.TokenTypeAccess, string(ident.Role), s.AccessTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue access token: %w", err)
	}
	refresh, claims, err := s.Codec.IssueFor(ident.ID, jwtx.TokenTypeRefresh, string(ident.Role), s.RefreshTTL)
	if err != nil {
		return domain.TokenPair{}, fmt.Errorf("issue refresh token: %w", err)
	}

	if err := ledger.Record(ctx, ident.ID, refresh, claims.ExpiresAt.Time); err != nil {
		return domain.TokenPair{}, err
	}
	return domain.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// dummyPasswordHash is a valid hash of nothing anyone knows, verified against
// when the email is unknown.
func (s *AuthService) dummyPasswordHash() string {
	s.dummyOnce.Do(func() {
		h, err := s.Hasher.Hash("dummy-password-for-timing")
		if err == nil {
			s.dummyHash = h
		}
	})
	return s.dummyHash
}
