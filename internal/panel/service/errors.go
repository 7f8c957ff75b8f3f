package service

import "errors"

// Service-level error taxonomy. Handlers map these to HTTP statuses; callers
// can always distinguish "your request was invalid" (the sentinels below)
// from "the system failed to apply a valid request" (any other error).
var (
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
	ErrValidation = errors.New("validation failed")

	// ErrInvalidCredentials is deliberately uniform: it never reveals
	// whether the email or the password was wrong.
	ErrInvalidCredentials = errors.New("incorrect email or password")

	// ErrIPNotAllowed carries no address by itself; the auth service wraps
	// it with the blocked IP, which is an accepted disclosure (operators
	// need to see which address was turned away).
	ErrIPNotAllowed = errors.New("access from this IP is not allowed")

	ErrUnauthorized = errors.New("unauthorized")
)
