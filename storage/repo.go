// Package storage defines the key-value backends that hold client credentials.
package storage

import (
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// ErrNotFound is returned by Get when a key is absent or expired.
var ErrNotFound = autherrors.ErrNotFound

// Backend is a synchronous string key-value store. Implementations must be
// safe for concurrent use.
type Backend interface {
	// Name identifies the backend in logs
	Name() string

	// Get returns ErrNotFound for missing or expired keys
	Get(key string) (string, error)

	// Set stores value. A zero ttl means no expiry.
	Set(key, value string, ttl time.Duration) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(key string) error
}
