package service

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidInput       = errors.New("invalid_input")
	ErrEmailTaken         = errors.New("email_taken")
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrRefreshInvalid     = errors.New("invalid_refresh_token")
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrStorageUnavailable = errors.New("storage_unavailable")

	// Internal to the service layer; callers see ErrInvalidCredentials,
	// ErrUnauthenticated or ErrEmailTaken instead.
	ErrIdentityNotFound  = errors.New("identity_not_found")
	ErrDuplicateIdentity = errors.New("duplicate_identity")
)

// ValidationError names the offending request field. It matches
// ErrInvalidInput under errors.Is.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

// asStorageErr leaves errors already classified by this package alone and
// wraps everything else as a storage fault.
func asStorageErr(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrStorageUnavailable),
		errors.Is(err, ErrInvalidInput),
		errors.Is(err, ErrEmailTaken),
		errors.Is(err, ErrInvalidCredentials),
		errors.Is(err, ErrRefreshInvalid),
		errors.Is(err, ErrUnauthenticated),
		errors.Is(err, ErrIdentityNotFound),
		errors.Is(err, ErrDuplicateIdentity):
		return err
	default:
		return storageErr(op, err)
	}
}
