// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is to match these values;
// detail is attached with fmt.Errorf("%w: ...").
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("authentication required")
	ErrForbidden      = errors.New("access denied")
	ErrConflictState  = errors.New("conflicting state")

	// Identity provider errors.
	ErrSignatureInvalid  = errors.New("invalid signature")
	ErrMalformedIdentity = errors.New("malformed identity payload")

	// Validation / item-specific errors.
	ErrInvalidID        = errors.New("invalid identifier")
	ErrValidation       = errors.New("validation failed")
	ErrCapacityExceeded = errors.New("capacity exceeded")

	// External collaborators.
	ErrStorageProvider = errors.New("storage provider failure")
	ErrConfiguration   = errors.New("configuration error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)

// Error attaches a user-facing message to one of the sentinel kinds above.
// errors.Is(err, kind) keeps working through it.
type Error struct {
	Kind    error
	Message string
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Kind }

// Errorf builds an *Error of the given kind.
func Errorf(kind error, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
