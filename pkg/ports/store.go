package ports

import (
	"context"
)

// KeyValueStore persists opaque documents under string keys.
// Entity collections store their whole array under a single key, so Set
// replaces the previous value (last write wins).
type KeyValueStore interface {
	// Get returns the value stored under key.
	// Returns domain.ErrKeyNotFound if the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys lists the stored keys in lexical order.
	Keys(ctx context.Context) ([]string, error)
}
