package shared

import "errors"

var (
	// ErrValidation indicates malformed or unresolvable input.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound indicates a referenced entity is absent.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates an invalid state transition.
	ErrConflict = errors.New("conflict")
	// ErrPrecondition indicates required prior state is absent.
	ErrPrecondition = errors.New("precondition failed")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
