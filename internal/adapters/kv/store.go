// Package kv defines the key-value namespace the catalog is read from and
// its backends.
package kv

import "context"

// Key is one listed key with its optional metadata document.
type Key struct {
	Name string
	// Metadata holds the raw JSON stored alongside the key; nil when absent.
	Metadata []byte
}

// Namespace provides read access to one named key-value namespace.
// Implementations must be safe for concurrent use.
type Namespace interface {
	// Get returns the raw value stored under key.
	// Returns ErrNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List returns every key starting with prefix, in lexicographic order,
	// including each key's metadata.
	List(ctx context.Context, prefix string) ([]Key, error)

	// Close releases any resources held by the backend.
	Close() error
}

// Backend names accepted by Open.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMinio  = "minio"
)
