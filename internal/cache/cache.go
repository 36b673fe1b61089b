package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when no entry exists for the key.
var ErrNotFound = errors.New("cache entry not found")

// Entry is one extractor's output for one file state. Elapsed records
// how long the original extraction took, so a replay can account for it
// without re-running the extractor.
type Entry struct {
	Fields  map[string]any
	Elapsed time.Duration
}

// Cache memoizes extractor output. Keys encode both file identity
// (path, mtime, size) and extractor identity (name, version), so
// distinct writers never contend on a key and stale entries are simply
// never read again. Implementations must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (Entry, error)
	Put(ctx context.Context, key string, entry Entry) error
}
