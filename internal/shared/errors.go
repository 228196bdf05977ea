package shared

import (
	"errors"
	"fmt"
)

// Sentinel error kinds returned by the domain layer. Callers classify
// failures with errors.Is; human-readable context is wrapped around these
// with %w.
var (
	// ErrNotFound indicates a register, supplier, PIN or settings row is missing.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a duplicate, e.g. a second register for the same outlet and date.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidState indicates a mutation against a sealed resource, e.g. a closed register.
	ErrInvalidState = errors.New("invalid state")
	// ErrUnauthorized indicates a PIN mismatch or a required verification that was not supplied.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrLocked indicates the PIN lockout window is active.
	ErrLocked = errors.New("locked")
	// ErrForbidden indicates cross-outlet access.
	ErrForbidden = errors.New("forbidden")
	// ErrBadRequest indicates invalid input, e.g. a payment exceeding the outstanding balance.
	ErrBadRequest = errors.New("bad request")
)

// NotFoundf wraps ErrNotFound with a formatted message.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// AlreadyExistsf wraps ErrAlreadyExists with a formatted message.
func AlreadyExistsf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrAlreadyExists)...)
}

// BadRequestf wraps ErrBadRequest with a formatted message.
func BadRequestf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrBadRequest)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted message.
func InvalidStatef(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}

// Unauthorizedf wraps ErrUnauthorized with a formatted message.
func Unauthorizedf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrUnauthorized)...)
}
