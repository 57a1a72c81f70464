package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no value exists at the given path.
var ErrNotFound = errors.New("storage: not found")

// Metadata describes a stored entry during Find.
type Metadata struct {
	Path      string    `json:"path"`
	Size      int64     `json:"size"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Storage is an opaque byte store used for pipeline inputs, outputs, and the
// previous run's artifacts. Implementations must be safe for concurrent use.
type Storage interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Set(ctx context.Context, path string, data []byte) error
	// Find streams entries whose path matches the glob pattern. The channel
	// is closed when enumeration finishes or ctx is cancelled.
	Find(ctx context.Context, pattern string) (<-chan Metadata, error)
	Clear(ctx context.Context) error
}
