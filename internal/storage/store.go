// Package storage provides abstractions for persistent data storage.
package storage

import "context"

// Store is a small persistent key-value store. The client uses it to keep
// the session token across restarts.
// This abstraction allows swapping storage backends without changing the
// session layer.
type Store interface {
	// Get returns the value stored under key. ok is false when the key is
	// absent.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases any resources held by the store.
	Close() error
}
