package cache

import (
	"context"
)

// Cache is a run-scoped key/value cache used to memoize expensive model
// calls. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Has(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
	// CreateChild returns a scoped sub-cache whose keys are namespaced under
	// the parent but whose Clear only removes its own namespace.
	CreateChild(name string) Cache
	Clear(ctx context.Context) error
}
