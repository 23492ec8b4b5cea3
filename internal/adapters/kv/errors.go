package kv

import (
	"errors"
	"fmt"
)

// Sentinel kinds for namespace errors.
var (
	ErrNotFound       = errors.New("key not found")
	ErrUnknownBackend = errors.New("unknown kv backend")
	ErrClosed         = errors.New("namespace closed")
	ErrSeed           = errors.New("load seed failed")
)

// NotFoundError names the key that was not found.
type NotFoundError struct {
	Key string
}

func (e NotFoundError) Error() string {
	if e.Key == "" {
		return ErrNotFound.Error()
	}
	return fmt.Sprintf("%s: %s", e.Key, ErrNotFound)
}

func (e NotFoundError) Unwrap() error {
	return ErrNotFound
}

// IsNotFound reports whether err represents a missing key.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
