package errors

import (
	"errors"
	"fmt"
)

// Common error types for the auth client
var (
	// Input errors
	ErrInvalidInput = errors.New("invalid input")

	// Session errors
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNoRefreshToken   = errors.New("no refresh token available")

	// Token errors
	ErrInvalidToken      = errors.New("invalid token")
	ErrMissingExpiry     = errors.New("token has no exp claim")
	ErrPartialCredential = errors.New("credential requires both access and refresh tokens")

	// Tenant errors
	ErrTenantNotFound = errors.New("tenant not found")

	// Storage errors
	ErrNotFound = errors.New("not found")
)

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

// Is reports whether any error in err's chain matches target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
