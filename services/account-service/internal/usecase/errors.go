package usecase

import (
	"errors"
	"fmt"
)

// Error categories. Every error returned by this package wraps exactly one of them,
// so transport layers can map with errors.Is.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrAuthMismatch = errors.New("authentication failed")
	ErrExpired      = errors.New("expired")
	ErrPersistence  = errors.New("persistence failure")
	ErrDelivery     = errors.New("delivery failure")
	ErrConflict     = errors.New("conflict")
)

var (
	ErrOTPMissing  = fmt.Errorf("%w: no pending otp", ErrNotFound)
	ErrOTPMismatch = fmt.Errorf("%w: otp does not match", ErrAuthMismatch)
	ErrOTPExpired  = fmt.Errorf("%w: otp expired", ErrExpired)

	ErrAccountNotFound      = fmt.Errorf("%w: account not found", ErrNotFound)
	ErrAccountAlreadyExists = fmt.Errorf("%w: account already exists", ErrConflict)
	ErrInvalidCredentials   = fmt.Errorf("%w: invalid credentials", ErrAuthMismatch)
	ErrResetTokenNotFound   = fmt.Errorf("%w: password reset token not found", ErrNotFound)

	// ErrUnauthenticated is the only error Verify ever returns.
	ErrUnauthenticated = fmt.Errorf("%w: unauthenticated", ErrAuthMismatch)
)

var (
	errMissingToken    = fmt.Errorf("%w: missing bearer token", ErrValidation)
	errMalformedToken  = fmt.Errorf("%w: malformed bearer token", ErrValidation)
	errSessionMismatch = fmt.Errorf("%w: session does not match", ErrAuthMismatch)
	errAccountInactive = fmt.Errorf("%w: account inactive", ErrNotFound)
)

func persistenceError(err error) error {
	return fmt.Errorf("%w: %w", ErrPersistence, err)
}

func validationError(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
