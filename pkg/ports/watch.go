package ports

import "context"

// Watchable defines an interface for stores that can notify about backend changes.
// This is typically used by the CLI watch mode to re-validate edited files.
type Watchable interface {
	// Watch returns a channel that is signaled when the underlying data changes.
	// It abstracts away the specific event details, signaling only that a reload is required.
	Watch(ctx context.Context) (<-chan struct{}, error)
}
