package domain

import "errors"

// Every store and service operation fails with exactly one of these kinds.
// Callers classify with errors.Is and map to transport status codes.
var (
	ErrNotFound        = errors.New("not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConflict is reserved for duplicate prevention; no operation
	// returns it today because identical links are permitted.
	ErrConflict = errors.New("conflict")
)
