package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when the requested key does not exist.
var ErrNotFound = errors.New("object not found")

// IsNotFound reports whether err indicates a missing object
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Object is a stored blob with its content type.
type Object struct {
	Key         string
	Data        []byte
	ContentType string
}

// Store is the object storage port. Keys are flat strings; prefix listing
// treats "/" as a path separator the way object stores conventionally do.
type Store interface {
	// Put writes data under key, overwriting any existing object.
	Put(ctx context.Context, key string, data []byte, contentType string) error

	// Get retrieves the object at key, returning ErrNotFound when absent.
	Get(ctx context.Context, key string) (*Object, error)

	// List returns all object keys under prefix, recursively.
	List(ctx context.Context, prefix string) ([]string, error)

	// ListPrefixes returns the immediate child "directories" under prefix,
	// without the trailing separator.
	ListPrefixes(ctx context.Context, prefix string) ([]string, error)

	// Ping verifies the store is reachable and the target bucket exists.
	Ping(ctx context.Context) error
}
